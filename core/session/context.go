package session

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkit/core/token"
)

// Context is the per-request session facade. It is constructed by
// Manager.Resolve and exposes the authorization API, the session
// data accessors, and the lifecycle transitions (login, revocation).
//
// A Context also accumulates pending client instructions (a replacement
// credential cookie, an anti-CSRF response header) that the transport
// layer applies after the business logic runs.
//
// A Context is request-scoped and not safe for concurrent use.
type Context struct {
	mgr *Manager

	// record is nil while the session is a stateless anonymous token;
	// it is set on login and on anonymous materialization.
	record *Record

	public     PublicData
	csrfToken  string
	credential string

	pendingCredential    string
	hasPendingCredential bool
	pendingCSRF          string
	hasPendingCSRF       bool
}

// Handle returns the persisted record's handle, or uuid.Nil for a
// stateless anonymous session.
func (c *Context) Handle() uuid.UUID {
	if c.record == nil {
		return uuid.Nil
	}
	return c.record.Handle
}

// UserID returns the authenticated user, or uuid.Nil for anonymous sessions.
func (c *Context) UserID() uuid.UUID {
	return c.public.UserID
}

// Roles returns a copy of the role set.
func (c *Context) Roles() []string {
	return c.public.Clone().Roles
}

// PublicData returns a copy of the session's public data.
func (c *Context) PublicData() PublicData {
	return c.public.Clone()
}

// CSRFToken returns the anti-CSRF value bound to this session.
func (c *Context) CSRFToken() string {
	return c.csrfToken
}

// IsAuthenticated returns true if an authenticated identity is attached.
func (c *Context) IsAuthenticated() bool {
	return c.public.UserID != uuid.Nil
}

// IsPersisted returns true if the session is backed by a store record.
func (c *Context) IsPersisted() bool {
	return c.record != nil
}

// Authorize guards access to business logic. With no arguments it is a
// login-only gate. With role arguments it additionally evaluates the
// configured Authorizer. It has no side effects.
//
// Returns ErrAuthentication when no identity is present (regardless of the
// role arguments) and ErrAuthorization when the identity lacks every
// required role.
func (c *Context) Authorize(roles ...string) error {
	if c.public.UserID == uuid.Nil {
		return ErrAuthentication
	}
	if len(roles) == 0 {
		return nil
	}
	if !c.mgr.authorizer(c.public.Roles, roles) {
		return ErrAuthorization
	}
	return nil
}

// IsAuthorized is the non-throwing form of Authorize.
func (c *Context) IsAuthorized(roles ...string) bool {
	return c.Authorize(roles...) == nil
}

// ValidateCSRF compares a header-supplied anti-CSRF value against the
// session's token in constant time. It must pass before any mutating
// operation executes, independent of login state or roles.
func (c *Context) ValidateCSRF(headerValue string) error {
	if headerValue == "" || !token.Equal(headerValue, c.csrfToken) {
		return ErrCSRFMismatch
	}
	return nil
}

// Create transitions the session to authenticated: a new record is issued
// with fresh opaque and anti-CSRF tokens, and any public extension fields
// or private data accumulated on the prior anonymous session are merged
// into it before persistence. Sibling sessions of the same user are never
// revoked.
//
// The new credential and anti-CSRF token are queued for the client.
func (c *Context) Create(ctx context.Context, public PublicData, private map[string]any) (*Issued, error) {
	merged := public.Clone().normalize()

	// Carry forward extension fields the login payload did not override.
	for k, v := range c.public.Extra {
		if _, ok := merged.Extra[k]; !ok {
			if merged.Extra == nil {
				merged.Extra = map[string]any{}
			}
			merged.Extra[k] = v
		}
	}

	mergedPrivate := maps.Clone(private)
	if c.record != nil && len(c.record.Private) > 0 {
		carried := maps.Clone(c.record.Private)
		maps.Copy(carried, mergedPrivate)
		mergedPrivate = carried
	}

	issued, err := c.mgr.Create(ctx, merged, mergedPrivate)
	if err != nil {
		return nil, err
	}

	// An anonymous persisted record has served its purpose once its data
	// is carried into the authenticated record.
	if c.record != nil && c.record.IsAnonymous() {
		if err := c.mgr.Revoke(ctx, c.record.Handle); err != nil {
			return nil, err
		}
	}

	rec := issued.Record
	c.record = &rec
	c.public = rec.Public.Clone()
	c.csrfToken = issued.CSRFToken
	c.credential = issued.Credential
	c.queueCredential(issued.Credential)
	c.queueCSRF(issued.CSRFToken)

	return issued, nil
}

// Revoke deletes the current record (a no-op if already absent) and
// resets the holder to a fresh stateless anonymous session. The
// replacement anonymous credential is queued so the boundary layer
// replaces the client-held credentials. Authenticated sessions never
// transition back to anonymous; the new token is a new holder.
func (c *Context) Revoke(ctx context.Context) error {
	if c.record != nil {
		if err := c.mgr.Revoke(ctx, c.record.Handle); err != nil {
			return err
		}
	}
	return c.resetAnonymous()
}

// RevokeAll deletes every record of the current user and resets the
// holder to a fresh anonymous session. Requires an authenticated identity.
func (c *Context) RevokeAll(ctx context.Context) error {
	if c.public.UserID == uuid.Nil {
		return ErrAuthentication
	}
	if err := c.mgr.RevokeAll(ctx, c.public.UserID); err != nil {
		return err
	}
	return c.resetAnonymous()
}

// GetPrivateData returns the server-only data of the session. A stateless
// anonymous session has none.
func (c *Context) GetPrivateData(ctx context.Context) (map[string]any, error) {
	if c.record == nil {
		return map[string]any{}, nil
	}

	rec, err := c.mgr.store.GetSession(ctx, c.record.Handle)
	if err != nil {
		return nil, err
	}

	data := maps.Clone(rec.Private)
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// SetPrivateData merges the given keys into the session's private data
// via a read-modify-write update. On a stateless anonymous session the
// first write materializes exactly one record, keyed by a fresh handle
// and carrying the embedded public data and anti-CSRF token; the
// handle-bearing credential replaces the anonymous token on the client.
func (c *Context) SetPrivateData(ctx context.Context, data map[string]any) error {
	if c.record == nil {
		return c.materialize(ctx, data)
	}

	rec, err := c.mgr.store.GetSession(ctx, c.record.Handle)
	if err != nil {
		return err
	}

	merged := maps.Clone(rec.Private)
	if merged == nil {
		merged = map[string]any{}
	}
	maps.Copy(merged, data)

	updated, err := c.mgr.store.UpdateSession(ctx, c.record.Handle, Update{Private: merged})
	if err != nil {
		return err
	}

	c.record = updated
	return nil
}

// SetPublicData merges the given public data into the session. Roles
// replace the current set when non-nil; Extra keys merge over existing
// ones. The UserID field is ignored: identity changes only through Create.
//
// Persisted sessions update their record in place; stateless anonymous
// sessions re-issue the signed token instead, since stateless tokens are
// never mutated.
func (c *Context) SetPublicData(ctx context.Context, data PublicData) error {
	updatedPublic := c.public.Clone()
	if data.Roles != nil {
		updatedPublic.Roles = append([]string(nil), data.Roles...)
	}
	if len(data.Extra) > 0 {
		if updatedPublic.Extra == nil {
			updatedPublic.Extra = map[string]any{}
		}
		maps.Copy(updatedPublic.Extra, data.Extra)
	}

	if c.record == nil {
		credential, err := c.mgr.anon.Issue(updatedPublic, c.csrfToken)
		if err != nil {
			return err
		}
		c.public = updatedPublic
		c.credential = credential
		c.queueCredential(credential)
		return nil
	}

	updated, err := c.mgr.store.UpdateSession(ctx, c.record.Handle, Update{Public: &updatedPublic})
	if err != nil {
		return err
	}

	c.record = updated
	c.public = updated.Public.Clone()
	return nil
}

// materialize is the stateless-to-persisted transition: the anonymous
// session's public data and anti-CSRF token carry into the new record
// unchanged, so the client's stored anti-CSRF value keeps working.
func (c *Context) materialize(ctx context.Context, private map[string]any) error {
	issued, err := c.mgr.persist(ctx, c.public, private, c.csrfToken)
	if err != nil {
		return err
	}

	rec := issued.Record
	c.record = &rec
	c.credential = issued.Credential
	c.queueCredential(issued.Credential)
	return nil
}

// resetAnonymous replaces this context's state with a fresh stateless
// anonymous session and queues its credential for the client.
func (c *Context) resetAnonymous() error {
	fresh, err := c.mgr.newAnonymous()
	if err != nil {
		// The old credentials must not survive revocation even if issuing
		// a replacement failed.
		c.record = nil
		c.public = PublicData{UserID: uuid.Nil, Roles: []string{}}
		c.csrfToken = ""
		c.credential = ""
		return err
	}

	c.record = nil
	c.public = fresh.public
	c.csrfToken = fresh.csrfToken
	c.credential = fresh.credential
	c.queueCredential(fresh.credential)
	c.queueCSRF(fresh.csrfToken)
	return nil
}

// Credential returns the current client-bound credential value: the
// opaque handle/token pair for persisted sessions or the signed anonymous
// token otherwise.
func (c *Context) Credential() string {
	return c.credential
}

// ExpiresAt returns the record expiry for persisted sessions; the zero
// time for stateless anonymous sessions (their tokens do not expire).
func (c *Context) ExpiresAt() time.Time {
	if c.record == nil {
		return time.Time{}
	}
	return c.record.ExpiresAt
}

func (c *Context) queueCredential(credential string) {
	c.pendingCredential = credential
	c.hasPendingCredential = true
}

func (c *Context) queueCSRF(csrfToken string) {
	c.pendingCSRF = csrfToken
	c.hasPendingCSRF = true
}

// PendingCredential reports a queued replacement for the client-held
// credential cookie, if any.
func (c *Context) PendingCredential() (string, bool) {
	return c.pendingCredential, c.hasPendingCredential
}

// PendingCSRF reports a queued anti-CSRF response header value, if any.
func (c *Context) PendingCSRF() (string, bool) {
	return c.pendingCSRF, c.hasPendingCSRF
}
