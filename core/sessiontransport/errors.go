package sessiontransport

import "errors"

var (
	// ErrExpiredCredential is returned when saving a persisted session
	// whose record already expired; there is nothing valid to send.
	ErrExpiredCredential = errors.New("sessiontransport: cannot save expired session credential")
)
