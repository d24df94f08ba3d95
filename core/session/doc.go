// Package session implements the session management and authorization
// core: opaque token issuance and verification, anonymous session
// interop, CSRF validation, and the per-request authorization facade.
//
// # Core Components
//
// The package provides four main types:
//
//   - Record: a persisted session with public and private data
//   - Store: the persistence contract any backing engine implements
//   - Manager: token issuance, per-request verification, revocation
//   - Context: the per-request facade exposing Authorize and data accessors
//
// Two session representations interoperate. Authenticated (and anonymous
// persisted) sessions are Records referenced by opaque credentials of the
// wire form "<handle-uuid>:<raw-token>"; only the SHA-256 digest of the
// raw token is stored. Visitors without any session evidence instead hold
// a stateless signed token (see the anonymous package) that carries their
// public data and anti-CSRF value with no backing record; a record is
// materialized lazily on their first private-data write.
//
// # Basic Usage
//
// Wire a manager from a store and the anonymous token issuer:
//
//	anon, err := anonymous.New(cfg.Secret)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mgr, err := session.New(store, anon,
//		session.WithExpiry(30*24*time.Hour),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Resolve the request credential into a per-request Context:
//
//	sc, err := mgr.Resolve(ctx, cookieValue)
//	if err != nil {
//		return err // store or crypto infrastructure failure only
//	}
//
// Resolution never fails for invalid credentials: expired, revoked,
// tampered, or absent credentials all downgrade to a fresh anonymous
// session. Successful opaque verification slides the record expiry
// forward as a side effect.
//
// # Authorization
//
// Context.Authorize is a pure guard with strict error semantics that
// downstream access control depends on:
//
//	if err := sc.Authorize(); err != nil {
//		// ErrAuthentication: no identity present
//	}
//
//	if err := sc.Authorize("admin", "manager"); err != nil {
//		// ErrAuthentication if anonymous,
//		// ErrAuthorization if neither role is held
//	}
//
// The role predicate is pluggable via WithAuthorizer; the default grants
// access when at least one required role is present.
//
// # Login and Revocation
//
//	issued, err := sc.Create(ctx, session.PublicData{
//		UserID: userID,
//		Roles:  []string{"user"},
//	}, nil)
//
// Create merges the prior anonymous session's public extension fields and
// private data into the new record, and queues the new credential and
// anti-CSRF token for the client. Multiple concurrent sessions per user
// are permitted; creating one never revokes the others.
//
//	_ = sc.Revoke(ctx)    // delete this session's record
//	_ = sc.RevokeAll(ctx) // delete every record of this user
//
// Both reset the holder to a fresh anonymous session; an authenticated
// session never transitions back to anonymous in place.
package session
