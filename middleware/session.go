package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sessionkit/core/session"
	"github.com/dmitrymomot/sessionkit/core/sessiontransport"
)

type sessionKey struct{}

// SessionConfig configures the session middleware.
type SessionConfig struct {
	// Transport loads and saves session credentials (required)
	Transport *sessiontransport.Transport

	// Skip defines a function to skip middleware execution for specific requests
	Skip func(r *http.Request) bool

	// Logger for structured logging (default: slog with io.Discard)
	Logger *slog.Logger

	// RequireAuth rejects requests without an authenticated identity
	RequireAuth bool

	// ErrorHandler writes the response for rejected requests.
	// Default maps ErrAuthentication to 401, ErrAuthorization and
	// ErrCSRFMismatch to 403, everything else to 500.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// Session creates middleware that resolves the request's session,
// enforces the CSRF guard on mutating methods, stores the session Context
// in the request context, and applies pending client instructions after
// the handler completes.
//
// The CSRF guard runs before the wrapped handler: a mutating request
// (POST, PUT, PATCH, DELETE) whose "anti-csrf" header does not match the
// resolved session's token is rejected regardless of login state.
func Session(transport *sessiontransport.Transport) func(http.Handler) http.Handler {
	return SessionWithConfig(SessionConfig{
		Transport: transport,
	})
}

// SessionWithConfig creates a session middleware with custom configuration.
func SessionWithConfig(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.Transport == nil {
		panic("session middleware: transport is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			sc, err := cfg.Transport.Load(r)
			if err != nil {
				cfg.Logger.ErrorContext(r.Context(), "session middleware: failed to load session", "error", err)
				cfg.ErrorHandler(w, r, err)
				return
			}

			// CSRF guard: mutating calls never reach business logic with a
			// missing or mismatched anti-CSRF header.
			if isMutating(r.Method) {
				if err := sc.ValidateCSRF(r.Header.Get(sessiontransport.CSRFHeader)); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			if cfg.RequireAuth {
				if err := sc.Authorize(); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, sc))

			// Pending credentials are header-borne, so they must reach the
			// response before the handler writes the body. The wrapper
			// flushes them right before the first write.
			sw := &sessionWriter{
				ResponseWriter: w,
				flush: func(w http.ResponseWriter) {
					if err := cfg.Transport.Save(w, sc); err != nil {
						cfg.Logger.ErrorContext(r.Context(), "session middleware: failed to save session", "error", err)
					}
				},
			}

			next.ServeHTTP(sw, r)
			sw.flushOnce()
		})
	}
}

// sessionWriter defers session cookie and header application until the
// handler commits the response. Session mutations made after the first
// body write cannot reach the client; handlers must mutate before writing.
type sessionWriter struct {
	http.ResponseWriter
	flushed bool
	flush   func(http.ResponseWriter)
}

func (sw *sessionWriter) flushOnce() {
	if !sw.flushed {
		sw.flushed = true
		sw.flush(sw.ResponseWriter)
	}
}

func (sw *sessionWriter) WriteHeader(statusCode int) {
	sw.flushOnce()
	sw.ResponseWriter.WriteHeader(statusCode)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.flushOnce()
	return sw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer so http.ResponseController can
// reach optional interfaces (Flusher, Hijacker) through the wrapper.
func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// GetSession retrieves the session Context from the request context.
func GetSession(r *http.Request) (*session.Context, bool) {
	sc, ok := r.Context().Value(sessionKey{}).(*session.Context)
	return sc, ok
}

// MustGetSession retrieves the session Context or panics if absent.
// Use when the middleware is guaranteed to have run.
func MustGetSession(r *http.Request) *session.Context {
	sc, ok := GetSession(r)
	if !ok {
		panic("session not found in request context")
	}
	return sc
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrAuthentication):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, session.ErrAuthorization), errors.Is(err, session.ErrCSRFMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
