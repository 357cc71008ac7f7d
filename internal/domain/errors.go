package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Every failure the
// service surfaces to a caller maps onto exactly one of these.

var (
	// Account errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")

	// Credit errors
	ErrInvalidOrUsedVoucher = errors.New("voucher is invalid or already used")
	ErrInsufficientCredit   = errors.New("insufficient credit balance")

	// Pipeline errors
	ErrMalformedModelOutput     = errors.New("model output could not be parsed")
	ErrServiceUnavailable       = errors.New("external service unavailable")
	ErrStagePrerequisiteMissing = errors.New("stage prerequisite artifact missing")
	ErrUnknownStage             = errors.New("unknown pipeline stage")

	// Workflow errors
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrInvalidPhase     = errors.New("operation not allowed in current workflow phase")
)
