package domain

import "errors"

// Expected, user-facing outcomes of booking operations. Anything else that
// comes out of a service call is a storage failure and stays wrapped.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRange      = errors.New("invalid time range")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
)
