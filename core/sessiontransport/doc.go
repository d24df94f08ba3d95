// Package sessiontransport moves session credentials across the HTTP
// boundary: a single HTTP-only cookie carries either the opaque
// handle/token credential of a persisted session or the signed anonymous
// token of a stateless one, and the anti-CSRF value travels in the
// "anti-csrf" header in both directions.
//
// The transport is a thin edge layer. All verification, issuance, and
// merging logic lives in the session core; the transport only extracts
// the cookie on the way in and applies the Context's queued instructions
// on the way out.
//
// # Basic Usage
//
//	transport := sessiontransport.New(mgr,
//		sessiontransport.WithCookieName("__session"),
//		sessiontransport.WithSameSite(http.SameSiteLaxMode),
//	)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		sc, err := transport.Load(r)
//		if err != nil {
//			http.Error(w, "session error", http.StatusInternalServerError)
//			return
//		}
//
//		// ... business logic using sc ...
//
//		if err := transport.Save(w, sc); err != nil {
//			log.Printf("failed to save session: %v", err)
//		}
//	}
//
// Or from environment configuration:
//
//	var cfg sessiontransport.Config
//	config.MustLoad(&cfg)
//	transport, err := sessiontransport.NewFromConfig(cfg, mgr)
//
// # Identity-Provider Handoff
//
// External identity-provider adapters complete their callback flows
// through Handoff, which creates the authenticated session and resolves
// the post-login redirect target:
//
//	handoff := sessiontransport.NewHandoff(transport, "/dashboard")
//
//	func callback(w http.ResponseWriter, r *http.Request) {
//		res := adapter.Exchange(r) // provider-specific
//		if err := handoff.Complete(w, r, res); err != nil {
//			http.Error(w, "login failed", http.StatusInternalServerError)
//		}
//	}
package sessiontransport
