package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkit/core/token"
)

// DefaultExpiry is the default session lifetime: 43200 minutes (30 days).
const DefaultExpiry = 43200 * time.Minute

// createRetries bounds handle-collision retries. Collisions are
// astronomically rare with CSPRNG handles, not a normal-path event.
const createRetries = 3

// AnonymousTokens issues and parses self-contained signed tokens for
// not-yet-authenticated visitors. Parse must fail closed on any decode or
// signature error. Implemented by anonymous.Manager.
type AnonymousTokens interface {
	Issue(public PublicData, csrfToken string) (string, error)
	Parse(credential string) (PublicData, string, error)
}

// Manager owns the session token lifecycle: issuance at login, per-request
// verification with sliding expiry, and revocation. All persistence goes
// through the Store contract; store errors propagate as-is without retry.
type Manager struct {
	store      Store
	anon       AnonymousTokens
	expiry     time.Duration
	authorizer Authorizer
}

// Option is a functional option for configuring the manager.
type Option func(*Manager)

// WithExpiry sets the session lifetime used for issuance and sliding
// refresh. Default is 30 days.
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

// WithAuthorizer replaces the default role predicate ("at least one
// required role present") with a custom one.
func WithAuthorizer(fn Authorizer) Option {
	return func(m *Manager) {
		if fn != nil {
			m.authorizer = fn
		}
	}
}

// New creates a session manager backed by the given store and anonymous
// token issuer.
func New(store Store, anon AnonymousTokens, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	if anon == nil {
		return nil, errors.New("session: anonymous token manager is required")
	}

	m := &Manager{
		store:      store,
		anon:       anon,
		expiry:     DefaultExpiry,
		authorizer: defaultAuthorizer,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Expiry returns the configured session lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Issued is the result of creating a persisted session. RawToken and
// CSRFToken are client-bound; Credential is the cookie wire form carrying
// the handle and raw token. The raw token is never stored.
type Issued struct {
	Handle     uuid.UUID
	RawToken   string
	CSRFToken  string
	Credential string
	Record     Record
}

// Create issues a new authenticated (or anonymous persisted) session for
// the given public data. A fresh opaque token and anti-CSRF token are
// generated, the token hash and record are persisted, and the raw values
// are returned for the client. Creating a session never revokes sibling
// sessions for the same user.
func (m *Manager) Create(ctx context.Context, public PublicData, private map[string]any) (*Issued, error) {
	csrfToken, err := token.New()
	if err != nil {
		return nil, err
	}
	return m.persist(ctx, public, private, csrfToken)
}

// persist is the shared issuance path used by Create and by anonymous
// session materialization (which carries its already-issued CSRF token).
// Handle collisions retry with a fresh handle and token.
func (m *Manager) persist(ctx context.Context, public PublicData, private map[string]any, csrfToken string) (*Issued, error) {
	public = public.Clone().normalize()
	private = maps.Clone(private)

	var lastErr error
	for range createRetries {
		rawToken, err := token.New()
		if err != nil {
			return nil, err
		}

		now := time.Now()
		rec := Record{
			Handle:    uuid.New(),
			UserID:    public.UserID,
			TokenHash: token.Hash(rawToken),
			CSRFToken: csrfToken,
			ExpiresAt: now.Add(m.expiry),
			Public:    public,
			Private:   private,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := m.store.CreateSession(ctx, &rec); err != nil {
			if errors.Is(err, ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		return &Issued{
			Handle:     rec.Handle,
			RawToken:   rawToken,
			CSRFToken:  csrfToken,
			Credential: encodeCredential(rec.Handle, rawToken),
			Record:     rec,
		}, nil
	}

	return nil, fmt.Errorf("session: could not allocate a unique handle: %w", lastErr)
}

// Resolve turns a request-supplied credential into a live per-request
// Context. Opaque credentials are verified against the store with a
// constant-time hash comparison and refreshed (sliding expiry) on success.
// Any authentication failure on this path, including expiry and
// revocation races, downgrades silently to the anonymous branch; if no
// valid anonymous token is present either, a fresh one with empty public
// data is synthesized. Resolve only returns an error for store or crypto
// infrastructure failures, never for invalid credentials.
func (m *Manager) Resolve(ctx context.Context, credential string) (*Context, error) {
	if credential != "" {
		if handle, rawToken, ok := parseCredential(credential); ok {
			sc, err := m.resolveOpaque(ctx, handle, rawToken, credential)
			if err != nil {
				return nil, err
			}
			if sc != nil {
				return sc, nil
			}
		} else if public, csrfToken, err := m.anon.Parse(credential); err == nil {
			return &Context{
				mgr:        m,
				public:     public.normalize(),
				csrfToken:  csrfToken,
				credential: credential,
			}, nil
		}
	}

	return m.newAnonymous()
}

// resolveOpaque verifies a handle/token pair. A nil, nil return means the
// credential did not authenticate and the caller should fall back to the
// anonymous path.
func (m *Manager) resolveOpaque(ctx context.Context, handle uuid.UUID, rawToken, credential string) (*Context, error) {
	rec, err := m.store.GetSession(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !token.Equal(token.Hash(rawToken), rec.TokenHash) {
		return nil, nil
	}

	// Expired records are inert regardless of physical cleanup. The
	// expiry is never refreshed on this branch.
	if rec.IsExpired() {
		return nil, nil
	}

	// Sliding expiry: a side effect of read-path verification.
	expiresAt := time.Now().Add(m.expiry)
	updated, err := m.store.UpdateSession(ctx, handle, Update{ExpiresAt: &expiresAt})
	if err != nil {
		// The record vanished between lookup and refresh: a concurrent
		// revocation won the race, so the session no longer authenticates.
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	sc := &Context{
		mgr:        m,
		record:     updated,
		public:     updated.Public.Clone().normalize(),
		csrfToken:  updated.CSRFToken,
		credential: credential,
	}
	// Re-queue the unchanged credential so the boundary layer re-sets the
	// cookie with the refreshed expiry; otherwise the client copy keeps
	// its login-time lifetime and dies while the record keeps sliding.
	sc.queueCredential(credential)
	sc.queueCSRF(updated.CSRFToken)
	return sc, nil
}

// newAnonymous synthesizes a stateless anonymous session with empty public
// data and a freshly issued anti-CSRF token, queued for the client.
func (m *Manager) newAnonymous() (*Context, error) {
	csrfToken, err := token.New()
	if err != nil {
		return nil, err
	}

	public := PublicData{UserID: uuid.Nil, Roles: []string{}}
	credential, err := m.anon.Issue(public, csrfToken)
	if err != nil {
		return nil, err
	}

	sc := &Context{
		mgr:        m,
		public:     public,
		csrfToken:  csrfToken,
		credential: credential,
	}
	sc.queueCredential(credential)
	sc.queueCSRF(csrfToken)
	return sc, nil
}

// Revoke deletes a single session record. A missing record is treated as
// already revoked.
func (m *Manager) Revoke(ctx context.Context, handle uuid.UUID) error {
	if _, err := m.store.DeleteSession(ctx, handle); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// RevokeAll deletes every session record belonging to a user. Records of
// other users are untouched.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	recs, err := m.store.GetSessions(ctx, userID)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if _, err := m.store.DeleteSession(ctx, rec.Handle); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	return nil
}
