// Package session holds per-user workflow state for the listing pipeline.
// Every workflow has an explicit identity so concurrent sessions cannot
// cross-contaminate; state lives in memory only and dies with the session.
package session

import (
	"sync"
	"time"

	"github.com/listforge/listforge/internal/domain"
)

// Workflow is one user's in-progress run through the pipeline, from upload
// to export. All artifact fields are owned exclusively by this workflow.
type Workflow struct {
	ID        string
	Owner     string
	Brand     string
	Image     []byte
	ImageMIME string

	Phase          domain.Phase
	Identification *domain.Identification
	Category       *domain.CategoryChoice
	Draft          *domain.ListingDraft
	Imagery        *domain.ImageryPlan
	Secondary      *domain.SecondaryContent
	Script         *domain.VideoScript

	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// Lock serializes stage execution for this workflow. No two stages of the
// same workflow may overlap; independent workflows run fully in parallel.
func (w *Workflow) Lock() { w.mu.Lock() }

// Unlock releases the stage lock.
func (w *Workflow) Unlock() { w.mu.Unlock() }

// Touch updates the idle-expiry clock.
func (w *Workflow) Touch() { w.UpdatedAt = time.Now() }

// Advance moves the workflow to the next phase. The caller must hold the
// lock and have stored the artifact that justifies the transition.
func (w *Workflow) Advance() {
	w.Phase = w.Phase.Next()
	w.Touch()
}

// Reset discards every artifact and returns to the first phase. The only
// backward transition the state machine allows.
func (w *Workflow) Reset() {
	w.Image = nil
	w.ImageMIME = ""
	w.Brand = ""
	w.Identification = nil
	w.Category = nil
	w.Draft = nil
	w.Imagery = nil
	w.Secondary = nil
	w.Script = nil
	w.Phase = domain.PhaseUploading
	w.Touch()
}

// Snapshot is the externally visible workflow state (no raw image bytes).
type Snapshot struct {
	ID             string                   `json:"id"`
	Brand          string                   `json:"brand,omitempty"`
	Phase          domain.Phase             `json:"phase"`
	HasImage       bool                     `json:"has_image"`
	Identification *domain.Identification   `json:"identification,omitempty"`
	Category       *domain.CategoryChoice   `json:"category,omitempty"`
	Draft          *domain.ListingDraft     `json:"draft,omitempty"`
	Imagery        *domain.ImageryPlan      `json:"imagery,omitempty"`
	Secondary      *domain.SecondaryContent `json:"secondary,omitempty"`
	Script         *domain.VideoScript      `json:"script,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// Snapshot captures the current state. Caller must hold the lock when the
// workflow may be mutated concurrently.
func (w *Workflow) Snapshot() Snapshot {
	return Snapshot{
		ID:             w.ID,
		Brand:          w.Brand,
		Phase:          w.Phase,
		HasImage:       len(w.Image) > 0,
		Identification: w.Identification,
		Category:       w.Category,
		Draft:          w.Draft,
		Imagery:        w.Imagery,
		Secondary:      w.Secondary,
		Script:         w.Script,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}
