package sessiontransport

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionkit/core/session"
	"github.com/dmitrymomot/sessionkit/pkg/clientip"
)

// CSRFHeader is the request and response header carrying the anti-CSRF
// token. The client persists the issued value outside cookies and replays
// it on every mutating call.
const CSRFHeader = "anti-csrf"

// anonymousCookieMaxAge is the lifetime of the anonymous token cookie.
// Anonymous tokens themselves never expire; 400 days is the longest
// lifetime current browsers honor.
const anonymousCookieMaxAge = 400 * 24 * 60 * 60

// Transport moves session credentials between the core and the HTTP edge:
// it reads the session cookie on the way in and applies the Context's
// pending instructions (replacement credential, anti-CSRF header) on the
// way out.
type Transport struct {
	mgr        *session.Manager
	cookieName string
	path       string
	domain     string
	secure     bool
	sameSite   http.SameSite
}

// Option is a functional option for configuring the transport.
type Option func(*Transport)

// WithCookieName overrides the session cookie name (default "__session").
func WithCookieName(name string) Option {
	return func(t *Transport) {
		if name != "" {
			t.cookieName = name
		}
	}
}

// WithPath sets the cookie path attribute (default "/").
func WithPath(path string) Option {
	return func(t *Transport) {
		if path != "" {
			t.path = path
		}
	}
}

// WithDomain sets the cookie domain attribute.
func WithDomain(domain string) Option {
	return func(t *Transport) {
		t.domain = domain
	}
}

// WithSecure controls the cookie Secure flag (default true).
func WithSecure(secure bool) Option {
	return func(t *Transport) {
		t.secure = secure
	}
}

// WithSameSite sets the cookie SameSite attribute (default Lax).
func WithSameSite(sameSite http.SameSite) Option {
	return func(t *Transport) {
		if sameSite != 0 {
			t.sameSite = sameSite
		}
	}
}

// New creates a session transport around the given manager.
func New(mgr *session.Manager, opts ...Option) *Transport {
	t := &Transport{
		mgr:        mgr,
		cookieName: defaultCookieName,
		path:       "/",
		secure:     true,
		sameSite:   http.SameSiteLaxMode,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Load resolves the request's session cookie into a per-request Context.
// Invalid, expired, or absent credentials degrade to a fresh anonymous
// session; only store or crypto infrastructure failures return an error.
func (t *Transport) Load(r *http.Request) (*session.Context, error) {
	var credential string
	if cookie, err := r.Cookie(t.cookieName); err == nil {
		credential = cookie.Value
	}

	return t.mgr.Resolve(r.Context(), credential)
}

// Save applies the Context's pending client instructions: the anti-CSRF
// response header and the replacement session cookie. Authenticated
// cookies expire with the record; anonymous token cookies are long-lived.
func (t *Transport) Save(w http.ResponseWriter, sc *session.Context) error {
	if csrfToken, ok := sc.PendingCSRF(); ok {
		w.Header().Set(CSRFHeader, csrfToken)
	}

	credential, ok := sc.PendingCredential()
	if !ok {
		return nil
	}

	maxAge := anonymousCookieMaxAge
	if sc.IsPersisted() {
		until := time.Until(sc.ExpiresAt())
		if until <= 0 {
			return ErrExpiredCredential
		}
		maxAge = int(until.Seconds())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     t.cookieName,
		Value:    credential,
		Path:     t.path,
		Domain:   t.domain,
		MaxAge:   maxAge,
		Secure:   t.secure,
		HttpOnly: true,
		SameSite: t.sameSite,
	})

	return nil
}

// Device metadata keys recorded in private data at login.
const (
	DeviceIPKey        = "ip"
	DeviceUserAgentKey = "user_agent"
)

// withDeviceInfo records the client IP and user agent of the login request
// in private data, so session listings can show which device each session
// belongs to. Caller-provided values under the same keys win.
func withDeviceInfo(private map[string]any, r *http.Request) map[string]any {
	enriched := make(map[string]any, len(private)+2)
	enriched[DeviceIPKey] = clientip.GetIP(r)
	if ua := r.UserAgent(); ua != "" {
		enriched[DeviceUserAgentKey] = ua
	}
	maps.Copy(enriched, private)
	return enriched
}

// Authenticate is the login convenience: load the current session,
// transition it to authenticated with the given data, and flush the new
// credentials to the response. The request's client IP and user agent are
// recorded in the session's private data.
func (t *Transport) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, public session.PublicData, private map[string]any) (*session.Context, error) {
	sc, err := t.Load(r)
	if err != nil {
		return nil, err
	}

	if _, err := sc.Create(ctx, public, withDeviceInfo(private, r)); err != nil {
		return nil, err
	}

	if err := t.Save(w, sc); err != nil {
		return nil, err
	}

	return sc, nil
}

// Logout revokes the current session and flushes the replacement
// anonymous credentials to the response.
func (t *Transport) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Context, error) {
	sc, err := t.Load(r)
	if err != nil {
		return nil, err
	}

	if err := sc.Revoke(ctx); err != nil {
		return nil, err
	}

	if err := t.Save(w, sc); err != nil {
		return nil, err
	}

	return sc, nil
}
