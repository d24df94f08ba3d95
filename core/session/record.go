package session

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// PublicData is the non-secret portion of a session, sent to the client
// inside anonymous tokens and exposed through the per-request Context.
// UserID and Roles are reserved fields; Extra is an open extension map
// serialized opaquely by stores. PublicData must never contain secrets.
type PublicData struct {
	// UserID identifies the authenticated user (uuid.Nil for anonymous sessions)
	UserID uuid.UUID `json:"userId"`

	// Roles the user holds, evaluated by the Authorizer
	Roles []string `json:"roles"`

	// Extra holds application-defined extension fields
	Extra map[string]any `json:"extra,omitempty"`
}

// HasRole reports whether the given role is present.
func (p PublicData) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (p PublicData) Clone() PublicData {
	return PublicData{
		UserID: p.UserID,
		Roles:  slices.Clone(p.Roles),
		Extra:  maps.Clone(p.Extra),
	}
}

// normalize guarantees Roles is non-nil so anonymous sessions always
// present an empty role set rather than a null one.
func (p PublicData) normalize() PublicData {
	if p.Roles == nil {
		p.Roles = []string{}
	}
	return p
}

// Record is a persisted session. It is created at login or at the first
// private-data write of an anonymous session, and deleted on revocation.
//
// TokenHash holds the one-way digest of the opaque token the client carries;
// the raw token itself is never persisted.
type Record struct {
	// Handle is the stable unique identifier, independent of the token value
	Handle uuid.UUID

	// UserID identifies the authenticated user (uuid.Nil for anonymous sessions)
	UserID uuid.UUID

	// TokenHash is the SHA-256 digest of the raw opaque token
	TokenHash string

	// CSRFToken is the plaintext anti-CSRF value compared on mutating requests
	CSRFToken string

	// ExpiresAt is the absolute expiry, extended forward on each verification
	ExpiresAt time.Time

	// Public is sent to the client; Private is server-only
	Public  PublicData
	Private map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired returns true if the record's expiry has passed.
func (r Record) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// IsAnonymous returns true if no authenticated identity is attached.
func (r Record) IsAnonymous() bool {
	return r.UserID == uuid.Nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	cp := r
	cp.Public = r.Public.Clone()
	cp.Private = maps.Clone(r.Private)
	return cp
}
