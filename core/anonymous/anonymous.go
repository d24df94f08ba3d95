package anonymous

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/sessionkit/core/session"
)

// minSecretLength is the minimum signing secret size (256 bits).
const minSecretLength = 32

var (
	// ErrSecretTooShort is returned at startup when the signing secret is
	// shorter than 32 characters. This is a fatal configuration condition.
	ErrSecretTooShort = errors.New("anonymous: signing secret must be at least 32 characters")

	// ErrInvalidToken is returned when a token fails decoding or signature
	// verification. Callers treat it as "no session", never escalate it.
	ErrInvalidToken = errors.New("anonymous: invalid token")
)

// Claims is the payload of a stateless anonymous session token: the
// visitor's public data, the anti-CSRF value bound at issuance, and the
// issuance timestamp. Anonymous tokens carry no expiry; they live until
// the holder logs in or the client discards the cookie.
type Claims struct {
	jwt.RegisteredClaims
	Public        session.PublicData `json:"publicData"`
	AntiCSRFToken string             `json:"antiCsrfToken"`
}

// Manager issues and parses anonymous session tokens, signed with the
// process-wide secret using HMAC-SHA256. The secret is read-only after
// initialization.
type Manager struct {
	secret []byte
}

// New creates an anonymous token manager. The secret must be at least
// 32 characters; a shorter value is rejected so deployments fail at
// startup rather than issue weakly signed tokens.
func New(secret string) (*Manager, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	return &Manager{secret: []byte(secret)}, nil
}

// Issue signs a stateless token embedding the given public data and
// anti-CSRF value. Tokens are re-issued, never mutated, when their public
// data changes.
func (m *Manager) Issue(public session.PublicData, csrfToken string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Public:        public,
		AntiCSRFToken: csrfToken,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse verifies a token and returns its embedded public data and
// anti-CSRF value. It fails closed: any decode error, unexpected signing
// method, or signature mismatch yields ErrInvalidToken.
func (m *Manager) Parse(credential string) (session.PublicData, string, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return session.PublicData{}, "", errors.Join(ErrInvalidToken, err)
	}

	return claims.Public, claims.AntiCSRFToken, nil
}
