package session

import "errors"

var (
	// ErrAuthentication is returned when an operation requires an
	// authenticated identity and none is present.
	ErrAuthentication = errors.New("session: authentication required")

	// ErrAuthorization is returned when an authenticated identity lacks
	// the required role.
	ErrAuthorization = errors.New("session: missing required role")

	// ErrCSRFMismatch is returned when the anti-CSRF header does not match
	// the value bound to the resolved session.
	ErrCSRFMismatch = errors.New("session: anti-CSRF token mismatch")

	// ErrNotFound is returned by stores when no record exists for a handle.
	ErrNotFound = errors.New("session: record not found")

	// ErrConflict is returned by stores when creating a record whose handle
	// already exists.
	ErrConflict = errors.New("session: handle already exists")
)
