package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTransition indicates a status change that is not allowed
	// from the record's current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidRating indicates a rating outside the 1-5 range
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidRecord indicates a record that cannot be persisted as-is
	ErrInvalidRecord = errors.New("invalid library record")

	// ErrExists indicates an insert of an id that is already stored
	ErrExists = errors.New("already exists")

	// ErrLocalStore indicates a persistence failure in the library store
	ErrLocalStore = errors.New("library store failure")
)
