package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when the current state does not permit the operation
	ErrInvalidState = errors.New("invalid requirement state")

	// ErrRoleMismatch is returned when the actor does not hold the role the state requires
	ErrRoleMismatch = errors.New("role mismatch")

	// ErrInvalidField is returned when an edit targets a non-editable or unknown attribute
	ErrInvalidField = errors.New("invalid field")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a requirement or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrSerialExhausted is returned when a department runs out of daily serial numbers
	ErrSerialExhausted = fmt.Errorf("%w: daily serial numbers exhausted", ErrValidation)
)
