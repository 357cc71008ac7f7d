// Package export packages a finished workflow into a downloadable bundle.
// Exporting is free: the credits were spent generating the artifacts, the
// bundle is just a rendering of them.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/app/session"
	"github.com/listforge/listforge/internal/domain"
	"github.com/listforge/listforge/internal/infra/observability"
)

// Service renders export bundles.
type Service struct {
	log *zap.Logger
}

// New creates the export service.
func New(log *zap.Logger) *Service {
	return &Service{log: log}
}

// Bundle assembles the flat export record from a workflow's artifacts.
// The caller must hold the workflow lock.
func Bundle(w *session.Workflow) (*domain.ExportBundle, error) {
	if w.Draft == nil || w.Imagery == nil {
		return nil, domain.ErrStagePrerequisiteMissing
	}
	b := &domain.ExportBundle{
		Brand:       w.Brand,
		Title:       w.Draft.Title,
		Bullets:     w.Draft.Bullets,
		Description: w.Draft.Description,
		SearchTerms: w.Draft.SearchTerms,
		Secondary:   w.Secondary,
		Script:      w.Script,
	}
	if w.Category != nil {
		b.Category = w.Category.Primary
	}
	for _, shot := range w.Imagery.Shots {
		b.ImagePrompts = append(b.ImagePrompts, shot.Prompt)
	}
	return b, nil
}

// Export builds the zip archive for a workflow and marks it exported.
// Allowed once imagery is planned; re-exporting a finished workflow is
// harmless and produces the same archive.
func (s *Service) Export(w *session.Workflow) ([]byte, error) {
	w.Lock()
	defer w.Unlock()

	switch w.Phase {
	case domain.PhaseVisualsPlanned, domain.PhaseExported:
	default:
		if w.Phase.Index() < domain.PhaseVisualsPlanned.Index() {
			return nil, domain.ErrStagePrerequisiteMissing
		}
		return nil, domain.ErrInvalidPhase
	}

	bundle, err := Bundle(w)
	if err != nil {
		return nil, err
	}
	archive, err := writeArchive(bundle)
	if err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	if w.Phase == domain.PhaseVisualsPlanned {
		w.Advance()
		observability.WorkflowsExported.Inc()
	} else {
		w.Touch()
	}
	s.log.Info("workflow exported",
		zap.String("workflow_id", w.ID),
		zap.Int("bytes", len(archive)))
	return archive, nil
}

// writeArchive renders the bundle as a zip with a machine-readable JSON
// record and human-readable text files.
func writeArchive(b *domain.ExportBundle) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	js, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, err
	}
	files := []struct {
		name string
		body []byte
	}{
		{"listing.json", js},
		{"listing.txt", []byte(renderListing(b))},
		{"image_prompts.txt", []byte(renderPrompts(b))},
	}

	for _, f := range files {
		fw, err := zw.Create(f.name)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(f.body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderListing(b *domain.ExportBundle) string {
	var sb strings.Builder
	if b.Brand != "" {
		fmt.Fprintf(&sb, "BRAND\n%s\n\n", b.Brand)
	}
	fmt.Fprintf(&sb, "TITLE\n%s\n\n", b.Title)
	if b.Category != "" {
		fmt.Fprintf(&sb, "CATEGORY\n%s\n\n", b.Category)
	}
	if len(b.Bullets) > 0 {
		sb.WriteString("BULLETS\n")
		for _, bl := range b.Bullets {
			fmt.Fprintf(&sb, "- %s\n", bl)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "DESCRIPTION\n%s\n", b.Description)
	if len(b.SearchTerms) > 0 {
		fmt.Fprintf(&sb, "\nSEARCH TERMS\n%s\n", strings.Join(b.SearchTerms, ", "))
	}
	if b.Secondary != nil {
		fmt.Fprintf(&sb, "\nA+ CONTENT\n%s\n", b.Secondary.Headline)
		for _, m := range b.Secondary.Modules {
			fmt.Fprintf(&sb, "\n%s\n", m)
		}
	}
	if b.Script != nil {
		fmt.Fprintf(&sb, "\nVIDEO SCRIPT\nHook: %s\n", b.Script.Hook)
		for i, sc := range b.Script.Scenes {
			fmt.Fprintf(&sb, "Scene %d: %s\n", i+1, sc)
		}
		fmt.Fprintf(&sb, "CTA: %s\n", b.Script.CTA)
	}
	return sb.String()
}

func renderPrompts(b *domain.ExportBundle) string {
	var sb strings.Builder
	for i, p := range b.ImagePrompts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p)
	}
	return sb.String()
}
