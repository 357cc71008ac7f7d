package pipeline

import (
	"context"
	"fmt"

	"github.com/listforge/listforge/internal/app/session"
	"github.com/listforge/listforge/internal/domain"
)

// ─── Identify ───────────────────────────────────────────────────────────────

// identifyStage recognizes the product from the uploaded photo.
// Parse policy: strict — a reply that is not the requested JSON object fails
// with ErrMalformedModelOutput.
type identifyStage struct{}

func (identifyStage) Name() string        { return StageIdentify }
func (identifyStage) Phase() domain.Phase { return domain.PhaseUploading }
func (identifyStage) Advances() bool      { return true }

func (identifyStage) Validate(w *session.Workflow) error {
	if len(w.Image) == 0 {
		return domain.ErrStagePrerequisiteMissing
	}
	return nil
}

func (identifyStage) Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error {
	prompt := fmt.Sprintf(`You are a professional Amazon listing expert. Examine this product photo carefully.
Brand label (may be empty): %q

Reply with ONLY a JSON object, no prose:
{
  "product_name": "concise product name",
  "materials": ["visible materials"],
  "colors": ["dominant colors"],
  "features": ["notable physical features, craftsmanship details"],
  "audience": "most likely buyer"
}
Describe only what the photo shows; no invented claims.`, w.Brand)

	raw, err := gen.Generate(ctx, prompt, w.Image, w.ImageMIME)
	if err != nil {
		return err
	}
	var ident domain.Identification
	if err := decodeStrict(raw, &ident); err != nil {
		return err
	}
	w.Identification = &ident
	return nil
}

// ─── Categorize ─────────────────────────────────────────────────────────────

// categorizeStage recommends a marketplace category. Parse policy: strict.
type categorizeStage struct{}

func (categorizeStage) Name() string        { return StageCategorize }
func (categorizeStage) Phase() domain.Phase { return domain.PhaseIdentified }
func (categorizeStage) Advances() bool      { return true }

func (categorizeStage) Validate(w *session.Workflow) error {
	if w.Identification == nil {
		return domain.ErrStagePrerequisiteMissing
	}
	return nil
}

func (categorizeStage) Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error {
	prompt := fmt.Sprintf(`You are an Amazon marketplace category specialist.
Product identification:
%s

Recommend the best-fitting Amazon browse category. Reply with ONLY JSON:
{
  "primary": "Best category path, e.g. Home & Kitchen > Coffee Mugs",
  "alternatives": ["up to three alternative category paths"],
  "rationale": "one sentence"
}`, mustJSON(w.Identification))

	raw, err := gen.Generate(ctx, prompt, nil, "")
	if err != nil {
		return err
	}
	var choice domain.CategoryChoice
	if err := decodeStrict(raw, &choice); err != nil {
		return err
	}
	w.Category = &choice
	return nil
}

// ─── Draft Copy ─────────────────────────────────────────────────────────────

// draftCopyStage writes the SEO listing copy. Parse policy: raw fallback —
// when the reply does not parse, the text is stored verbatim as the
// description with RawFallback set, because free-form copy is still usable.
type draftCopyStage struct{}

func (draftCopyStage) Name() string        { return StageDraftCopy }
func (draftCopyStage) Phase() domain.Phase { return domain.PhaseCategorySelected }
func (draftCopyStage) Advances() bool      { return true }

func (draftCopyStage) Validate(w *session.Workflow) error {
	if w.Identification == nil || w.Category == nil {
		return domain.ErrStagePrerequisiteMissing
	}
	return nil
}

func (draftCopyStage) Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error {
	prompt := fmt.Sprintf(`You are a professional Amazon listing copywriter writing native-level English.
Product identification:
%s
Chosen category: %s

Write SEO listing copy. Reply with ONLY JSON:
{
  "title": "Amazon title, under 200 characters, keyword-rich",
  "bullets": ["five feature bullets"],
  "description": "one paragraph, materials/colors/shape/texture/craftsmanship, native-level adjectives, no false claims",
  "search_terms": ["backend search terms"]
}`, mustJSON(w.Identification), w.Category.Primary)

	raw, err := gen.Generate(ctx, prompt, nil, "")
	if err != nil {
		return err
	}
	var draft domain.ListingDraft
	if err := decodeStrict(raw, &draft); err != nil {
		// Free text is still a usable description.
		w.Draft = &domain.ListingDraft{
			Description: cleanModelJSON(raw),
			RawFallback: true,
		}
		return nil
	}
	w.Draft = &draft
	return nil
}

// ─── Plan Imagery ───────────────────────────────────────────────────────────

// imageryStage plans the supporting photo set. Parse policy: strict.
type imageryStage struct{}

func (imageryStage) Name() string        { return StageImagery }
func (imageryStage) Phase() domain.Phase { return domain.PhaseCopyDrafted }
func (imageryStage) Advances() bool      { return true }

func (imageryStage) Validate(w *session.Workflow) error {
	if w.Draft == nil {
		return domain.ErrStagePrerequisiteMissing
	}
	return nil
}

func (imageryStage) Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error {
	prompt := fmt.Sprintf(`You are an e-commerce product photography director.
Listing copy:
%s

Plan a supporting image set for this Amazon listing (hero shot, lifestyle,
detail, scale, infographic). Reply with ONLY JSON:
{
  "shots": [
    {"label": "short shot name", "prompt": "generation-ready photo prompt"}
  ]
}
Plan five to seven shots.`, mustJSON(w.Draft))

	raw, err := gen.Generate(ctx, prompt, nil, "")
	if err != nil {
		return err
	}
	var plan domain.ImageryPlan
	if err := decodeStrict(raw, &plan); err != nil {
		return err
	}
	w.Imagery = &plan
	return nil
}

// ─── Plan Secondary Content (optional) ──────────────────────────────────────

// secondaryStage drafts A+/brand-story modules. Parse policy: strict.
// Does not advance the phase; it refines an already-planned listing.
type secondaryStage struct{}

func (secondaryStage) Name() string        { return StageSecondary }
func (secondaryStage) Phase() domain.Phase { return domain.PhaseVisualsPlanned }
func (secondaryStage) Advances() bool      { return false }

func (secondaryStage) Validate(w *session.Workflow) error {
	if w.Draft == nil {
		return domain.ErrStagePrerequisiteMissing
	}
	return nil
}

func (secondaryStage) Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error {
	prompt := fmt.Sprintf(`You are an Amazon A+ content strategist.
Listing copy:
%s

Draft secondary (A+) content. Reply with ONLY JSON:
{
  "headline": "brand story headline",
  "modules": ["three to five A+ module texts"]
}`, mustJSON(w.Draft))

	raw, err := gen.Generate(ctx, prompt, nil, "")
	if err != nil {
		return err
	}
	var sec domain.SecondaryContent
	if err := decodeStrict(raw, &sec); err != nil {
		return err
	}
	w.Secondary = &sec
	return nil
}

// ─── Script (optional) ──────────────────────────────────────────────────────

// scriptStage writes a short promo video script. Parse policy: strict.
// Does not advance the phase.
type scriptStage struct{}

func (scriptStage) Name() string        { return StageScript }
func (scriptStage) Phase() domain.Phase { return domain.PhaseVisualsPlanned }
func (scriptStage) Advances() bool      { return false }

func (scriptStage) Validate(w *session.Workflow) error {
	if w.Draft == nil {
		return domain.ErrStagePrerequisiteMissing
	}
	return nil
}

func (scriptStage) Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error {
	prompt := fmt.Sprintf(`You are a short-form product video scriptwriter.
Listing copy:
%s

Write a 30-second promo script. Reply with ONLY JSON:
{
  "hook": "first three seconds",
  "scenes": ["four to six scene descriptions with voiceover lines"],
  "cta": "closing call to action"
}`, mustJSON(w.Draft))

	raw, err := gen.Generate(ctx, prompt, nil, "")
	if err != nil {
		return err
	}
	var script domain.VideoScript
	if err := decodeStrict(raw, &script); err != nil {
		return err
	}
	w.Script = &script
	return nil
}
