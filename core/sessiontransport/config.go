package sessiontransport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/sessionkit/core/session"
)

const defaultCookieName = "__session"

// Config provides environment-based configuration for the session
// transport.
type Config struct {
	// CookieName is the name of the session cookie
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"__session"`

	// SameSite is the cookie SameSite mode: strict, lax, or none
	SameSite string `env:"SESSION_SAME_SITE" envDefault:"lax"`

	// CookieSecure controls the cookie Secure flag
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" envDefault:"true"`

	// CookiePath is the cookie path attribute
	CookiePath string `env:"SESSION_COOKIE_PATH" envDefault:"/"`

	// CookieDomain is the cookie domain attribute
	CookieDomain string `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
}

// DefaultConfig returns a Config with secure defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:   defaultCookieName,
		SameSite:     "lax",
		CookieSecure: true,
		CookiePath:   "/",
	}
}

// ParseSameSite maps the configuration string to http.SameSite.
// Recognized values: strict, lax, none (case-insensitive).
func ParseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode, nil
	case "lax", "":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("sessiontransport: invalid SameSite mode %q", value)
	}
}

// NewFromConfig creates a transport from configuration.
func NewFromConfig(cfg Config, mgr *session.Manager) (*Transport, error) {
	sameSite, err := ParseSameSite(cfg.SameSite)
	if err != nil {
		return nil, err
	}

	return New(mgr,
		WithCookieName(cfg.CookieName),
		WithSameSite(sameSite),
		WithSecure(cfg.CookieSecure),
		WithPath(cfg.CookiePath),
		WithDomain(cfg.CookieDomain),
	), nil
}
