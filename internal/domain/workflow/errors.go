package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned for unknown state codes
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every candidate transition was refused by its guard
	ErrGuardFailed = errors.New("guard condition failed")
)
