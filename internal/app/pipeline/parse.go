package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/listforge/listforge/internal/domain"
)

// ─── Model Output Parsing ───────────────────────────────────────────────────
// The untrusted-text boundary lives here: raw model text comes in, a typed
// artifact or ErrMalformedModelOutput comes out. No stage touches raw JSON
// directly.

// cleanModelJSON removes markdown code fences the model tends to wrap JSON
// replies in, leaving the payload intact.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeStrict parses the cleaned reply into v. Any JSON error, including
// unknown fields of the wrong shape, yields ErrMalformedModelOutput; the
// text is never partially trusted.
func decodeStrict(raw string, v any) error {
	cleaned := cleanModelJSON(raw)
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedModelOutput, err)
	}
	return nil
}

// mustJSON renders an artifact for inclusion in a follow-up prompt.
func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
