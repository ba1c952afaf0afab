package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates rejected input before any computation.
	ErrValidation = errors.New("validation failed")
	// ErrMissingIdentity occurs when a request lacks caller identity.
	ErrMissingIdentity = errors.New("caller identity missing")
)
