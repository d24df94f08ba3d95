package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Update describes a partial record change applied by Store.UpdateSession.
// Nil fields leave the stored value unchanged. Updates must be atomic per
// handle; concurrent expiry refreshes race benignly (both extend forward).
type Update struct {
	UserID    *uuid.UUID
	TokenHash *string
	CSRFToken *string
	ExpiresAt *time.Time
	Public    *PublicData

	// Private replaces the stored private data when non-nil.
	Private map[string]any
}

// Store defines the persistence contract for session records. Any backing
// engine (relational, key-value, in-memory) must satisfy it exactly; the
// core never assumes a specific engine and never retries failed operations.
//
// Implementations must handle concurrent access safely and return the
// package sentinel errors: ErrNotFound for absent handles and ErrConflict
// for duplicate handles on create.
type Store interface {
	// GetSession returns the record for a handle, or ErrNotFound.
	GetSession(ctx context.Context, handle uuid.UUID) (*Record, error)

	// GetSessions returns all records for a user, ordered by creation time.
	GetSessions(ctx context.Context, userID uuid.UUID) ([]Record, error)

	// CreateSession persists a new record, or returns ErrConflict if the
	// handle already exists.
	CreateSession(ctx context.Context, record *Record) error

	// UpdateSession applies a partial update and returns the resulting
	// record, or ErrNotFound if the handle is absent.
	UpdateSession(ctx context.Context, handle uuid.UUID, update Update) (*Record, error)

	// DeleteSession removes and returns the record, or ErrNotFound if the
	// handle is absent. Repeated deletion is a no-op error, not a crash.
	DeleteSession(ctx context.Context, handle uuid.UUID) (*Record, error)
}
