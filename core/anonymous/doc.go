// Package anonymous implements self-contained signed session tokens for
// visitors without an authenticated identity.
//
// Unlike persisted sessions, an anonymous session has no store record:
// the token itself carries the visitor's public data and anti-CSRF value,
// signed with the process-wide secret (HMAC-SHA256 via golang-jwt). A
// record is created lazily only when the holder first writes private
// data, at which point the session core replaces the anonymous token with
// an opaque handle-bearing credential in the same trust domain.
//
// Parsing fails closed: malformed, tampered, or foreign-keyed tokens all
// yield ErrInvalidToken, which the verifier downgrades to "no session"
// rather than surfacing to callers.
//
// Usage:
//
//	anon, err := anonymous.New(cfg.Secret)
//	if err != nil {
//		log.Fatal(err) // secret too short
//	}
//
//	tok, err := anon.Issue(session.PublicData{Roles: []string{}}, csrfToken)
//	public, csrf, err := anon.Parse(tok)
package anonymous
