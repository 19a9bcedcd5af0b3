package model

import "errors"

// Sentinel kinds for the failure taxonomy. Callers classify with errors.Is
// and decide whether to propagate, convert to a structured result, or log.
var (
	// ErrValidation marks malformed or out-of-range input, rejected before
	// any write. Recoverable by the caller correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a duplicate-key write attempted outside the upsert path.
	ErrConflict = errors.New("conflicting write")

	// ErrNotFound marks an operation on an id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSystem marks an unexpected failure in the store or a dependency.
	ErrSystem = errors.New("system failure")
)
