// Package middleware hosts authentication, logging, and rate limiting
// middleware for the HTTP façade.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"freeswap/internal/session"
)

// contextKey avoids collisions when storing values in request contexts.
type contextKey string

const ctxSessionKey contextKey = "session"

// AuthMiddleware resolves bearer tokens against the session store.
type AuthMiddleware struct {
	sessions *session.Store
}

func NewAuthMiddleware(store *session.Store) *AuthMiddleware {
	return &AuthMiddleware{sessions: store}
}

// Authenticate enforces bearer auth and puts the session on the request
// context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		sess, err := m.sessions.Get(token)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		// Hold the account for the duration of the request so a concurrent
		// logout or expiry sweep cannot tear down its sync handle mid-flight.
		if sess.Account != nil {
			if !sess.Account.Acquire() {
				jsonError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			defer sess.Account.Release()
		}

		ctx := context.WithValue(r.Context(), ctxSessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// SessionFromContext returns the authenticated session from context.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(ctxSessionKey).(*session.Session)
	return s, ok
}
