package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request failed local validation.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the operation lost a race against a concurrent
	// writer and should be retried by the caller with fresh state.
	ErrConflict = errors.New("concurrent update conflict")
)
