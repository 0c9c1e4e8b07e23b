package model

import "errors"

// Error kinds returned by every core operation. Lower layers wrap these
// with fmt.Errorf("...: %w", kind) so callers classify with errors.Is and
// the HTTP boundary can map each kind to exactly one status code.
var (
	// ErrInvalidInput covers malformed or missing fields and unknown enum values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict signals a duplicate unique key (e.g. an email already registered).
	ErrConflict = errors.New("conflict")
	// ErrAuthFailure is returned for bad credentials. Unknown identity and
	// wrong password are deliberately the same error.
	ErrAuthFailure = errors.New("invalid credentials")
	// ErrUnauthorized means the caller has no session.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrForbidden means the caller has a session but the wrong role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for operations on an id that does not exist.
	ErrNotFound = errors.New("not found")
)
