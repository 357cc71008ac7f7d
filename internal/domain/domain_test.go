package domain

import (
	"errors"
	"testing"
)

// ─── Phase Tests ────────────────────────────────────────────────────────────

func TestPhaseNext(t *testing.T) {
	tests := []struct {
		from Phase
		want Phase
	}{
		{PhaseUploading, PhaseIdentified},
		{PhaseIdentified, PhaseCategorySelected},
		{PhaseCategorySelected, PhaseCopyDrafted},
		{PhaseCopyDrafted, PhaseVisualsPlanned},
		{PhaseVisualsPlanned, PhaseExported},
		{PhaseExported, PhaseExported}, // terminal stays put
	}
	for _, tt := range tests {
		if got := tt.from.Next(); got != tt.want {
			t.Errorf("%s.Next() = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestPhaseIndex(t *testing.T) {
	if PhaseUploading.Index() != 0 {
		t.Errorf("PhaseUploading.Index() = %d, want 0", PhaseUploading.Index())
	}
	if PhaseExported.Index() != 5 {
		t.Errorf("PhaseExported.Index() = %d, want 5", PhaseExported.Index())
	}
	if Phase("BOGUS").Index() != -1 {
		t.Error("unknown phase should have index -1")
	}
}

func TestPhaseTerminal(t *testing.T) {
	if PhaseUploading.Terminal() {
		t.Error("PhaseUploading should not be terminal")
	}
	if !PhaseExported.Terminal() {
		t.Error("PhaseExported should be terminal")
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	errs := []error{
		ErrInvalidCredentials, ErrDuplicateAccount, ErrAccountNotFound,
		ErrInvalidOrUsedVoucher, ErrInsufficientCredit,
		ErrMalformedModelOutput, ErrServiceUnavailable,
		ErrStagePrerequisiteMissing, ErrWorkflowNotFound, ErrInvalidPhase,
	}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors %d and %d should be distinct", i, j)
			}
		}
	}
}
