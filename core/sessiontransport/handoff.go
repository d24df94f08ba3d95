package sessiontransport

import (
	"net/http"
	"net/url"

	"github.com/dmitrymomot/sessionkit/core/session"
)

const (
	// redirectParam is the per-request query parameter naming a redirect
	// target for handoff completion.
	redirectParam = "redirectUrl"

	// errorParam carries the provider error message on failed handoffs.
	errorParam = "authError"
)

// HandoffResult is the payload an identity-provider adapter delivers when
// its redirect/callback flow completes: either an error, or the verified
// identity's public data plus optional private data and redirect target.
type HandoffResult struct {
	Public      session.PublicData
	Private     map[string]any
	RedirectURL string
	Err         error
}

// Handoff dispatches identity-provider completion callbacks into the
// session core. On success it creates the authenticated session and
// redirects; on failure it surfaces the error message as a query
// parameter on the resolved redirect target.
type Handoff struct {
	transport *Transport

	// defaultRedirect is the statically configured success target.
	defaultRedirect string
}

// NewHandoff creates a handoff dispatcher. defaultRedirect may be empty,
// in which case successful handoffs without another target fall back to "/".
func NewHandoff(transport *Transport, defaultRedirect string) *Handoff {
	return &Handoff{
		transport:       transport,
		defaultRedirect: defaultRedirect,
	}
}

// Complete finishes an identity-provider handoff.
//
// Redirect-target resolution order on success: per-call override
// (res.RedirectURL) → per-request query parameter → static configuration →
// "/". Error cases skip the static tier: per-call override → query
// parameter → "/", with the error message appended as the authError query
// parameter.
func (h *Handoff) Complete(w http.ResponseWriter, r *http.Request, res HandoffResult) error {
	if res.Err != nil {
		target := firstNonEmpty(res.RedirectURL, r.URL.Query().Get(redirectParam), "/")
		http.Redirect(w, r, appendQuery(target, errorParam, res.Err.Error()), http.StatusSeeOther)
		return nil
	}

	if _, err := h.transport.Authenticate(r.Context(), w, r, res.Public, res.Private); err != nil {
		return err
	}

	target := firstNonEmpty(res.RedirectURL, r.URL.Query().Get(redirectParam), h.defaultRedirect, "/")
	http.Redirect(w, r, target, http.StatusSeeOther)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// appendQuery adds a query parameter to a target URL, tolerating targets
// that already carry a query string. Unparseable targets degrade to root.
func appendQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}

	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
