package registrations

import "errors"

// Lifecycle error taxonomy. Handlers map these onto HTTP statuses; nothing here
// is retried automatically.
var (
	// ErrNotFound: event or registration absent, or withdraw on an already-inactive
	// registration. Callers must treat ErrNotFound on withdraw as "already withdrawn".
	ErrNotFound = errors.New("registration not found")
	// ErrConflict: an active claim already exists for the (user, event) pair.
	ErrConflict = errors.New("active registration already exists")
	// ErrInvalidState: transition attempted from a state that does not permit it.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrUpload: evidence persistence failed; the submit is aborted and no row is created.
	ErrUpload = errors.New("evidence upload failed")
	// ErrValidation: malformed contact info or transaction id, rejected before any store mutation.
	ErrValidation = errors.New("invalid registration data")
)
