// Package middleware provides net/http middleware for the session core.
//
// The session middleware resolves the request credential into a
// per-request session Context, enforces the CSRF guard on mutating
// methods before any business logic runs, and applies the session's
// pending client instructions (replacement credential cookie, anti-CSRF
// header) when the handler commits its response.
//
// Usage:
//
//	mux := http.NewServeMux()
//	mux.Handle("/", middleware.Session(transport)(appHandler))
//
//	func appHandler(w http.ResponseWriter, r *http.Request) {
//		sc := middleware.MustGetSession(r)
//
//		if err := sc.Authorize("admin"); err != nil {
//			// session.ErrAuthentication or session.ErrAuthorization
//		}
//	}
//
// Sessions must be mutated before the handler writes the response body;
// credentials queued afterwards cannot reach the client.
package middleware
