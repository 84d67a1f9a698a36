package voucher

import "errors"

var (
	// ErrNoRequirements is returned when there is nothing to export
	ErrNoRequirements = errors.New("no completed requirements to export")

	// ErrNotComplete is returned when a requirement has not finished approval
	ErrNotComplete = errors.New("requirement is not complete")

	ErrFolderCreationFailed = errors.New("failed to create folder")
	ErrFileSaveFailed       = errors.New("failed to save file")
)
