package app

import "errors"

// Validation and runtime failures surfaced by the board flows.
var (
	ErrNotFound             = errors.New("not found")
	ErrUnknownStage         = errors.New("unknown stage")
	ErrZeroDealValue        = errors.New("deal value must be positive")
	ErrNoLossReason         = errors.New("a loss reason must be selected")
	ErrPendingTransition    = errors.New("another move is awaiting confirmation")
	ErrNoPendingTransition  = errors.New("no move is awaiting confirmation")
	ErrStaleSession         = errors.New("board session is no longer active")
	ErrConfirmationRequired = errors.New("move requires interactive confirmation")
)
