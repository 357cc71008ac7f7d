package domain

// ─── Workflow Phases ────────────────────────────────────────────────────────

// Phase is a state of the listing workflow. Phases advance strictly forward;
// the only backward transition is a full reset to PhaseUploading.
type Phase string

const (
	PhaseUploading        Phase = "UPLOADING"
	PhaseIdentified       Phase = "IDENTIFIED"
	PhaseCategorySelected Phase = "CATEGORY_SELECTED"
	PhaseCopyDrafted      Phase = "COPY_DRAFTED"
	PhaseVisualsPlanned   Phase = "VISUALS_PLANNED"
	PhaseExported         Phase = "EXPORTED"
)

// phaseOrder fixes the forward sequence.
var phaseOrder = []Phase{
	PhaseUploading,
	PhaseIdentified,
	PhaseCategorySelected,
	PhaseCopyDrafted,
	PhaseVisualsPlanned,
	PhaseExported,
}

// Next returns the phase following p, or p itself when p is terminal
// or unknown.
func (p Phase) Next() Phase {
	for i, ph := range phaseOrder {
		if ph == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1]
		}
	}
	return p
}

// Index returns the position of p in the fixed order, or -1 for an
// unknown phase.
func (p Phase) Index() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Terminal reports whether p is the final phase.
func (p Phase) Terminal() bool { return p == PhaseExported }
