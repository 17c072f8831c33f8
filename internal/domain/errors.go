package domain

import "errors"

// Sentinels wrapped by repositories and services. The HTTP layer maps them
// with errors.Is; anything unmatched surfaces as a 500.
var (
	// ErrNotFound covers missing records and records owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is a conditional write that lost to an existing item.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized wraps every token verification failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is an authenticated caller acting on someone else's resource.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest is input rejected before reaching storage.
	ErrBadRequest = errors.New("bad request")
)
