package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// Length is the fixed length of generated opaque tokens.
// Session tokens and anti-CSRF tokens are both this size.
const Length = 32

// alphabet is the base62 character set used for opaque tokens.
// It is part of the wire contract: tokens are 32 characters drawn
// from [0-9A-Za-z].
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ErrGeneration is returned when the system CSPRNG fails.
var ErrGeneration = errors.New("token: random generation failed")

// New returns a cryptographically random opaque token of Length characters.
// Each character carries ~5.95 bits of entropy for a total of ~190 bits.
func New() (string, error) {
	// Rejection sampling keeps the distribution uniform over the alphabet.
	buf := make([]byte, Length)
	raw := make([]byte, Length*2)

	i := 0
	for i < Length {
		if _, err := rand.Read(raw); err != nil {
			return "", errors.Join(ErrGeneration, err)
		}
		for _, b := range raw {
			if b >= 248 { // 248 = 62*4, highest multiple of 62 below 256
				continue
			}
			buf[i] = alphabet[int(b)%len(alphabet)]
			i++
			if i == Length {
				break
			}
		}
	}

	return string(buf), nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token.
// Only the digest is ever persisted; the raw token goes to the client.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Equal compares two token values in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
