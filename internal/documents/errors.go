package documents

import "errors"

var (
	// ErrNotFound covers both nonexistent documents and documents owned by
	// someone else, so existence is not leaked across owners.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks caller mistakes rejected before any state mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when re-uploading a category whose document
	// already reached DONE.
	ErrConflict = errors.New("document already verified")

	// ErrInvalidState is returned when the result is requested before the
	// document reaches a terminal state.
	ErrInvalidState = errors.New("document not in a terminal state")
)
