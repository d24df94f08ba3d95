// Package token provides the cryptographic primitives for opaque session
// credentials: CSPRNG-backed token generation, one-way hashing for storage,
// and constant-time comparison.
//
// Tokens are fixed-length (32 characters) base62 strings. The same generator
// is used independently for session tokens and anti-CSRF tokens. Raw tokens
// are transmitted to the client and never persisted; stores hold only the
// SHA-256 digest produced by Hash.
//
// Usage:
//
//	raw, err := token.New()
//	if err != nil {
//		return err
//	}
//
//	stored := token.Hash(raw)
//
//	// Later, verify an incoming raw token against the stored digest:
//	if !token.Equal(token.Hash(incoming), stored) {
//		return session.ErrAuthentication
//	}
package token
