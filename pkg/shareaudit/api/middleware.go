package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type contextKey string

const sessionKey contextKey = "shareaudit.session"

// Session is the authenticated-actor view the handlers consume from the
// session collaborator: an actor id plus the admin-capability flag.
type Session struct {
	UserID   uuid.UUID
	Username string
	IsAdmin  bool
}

// SessionFromContext returns the session placed by SessionLoader, or
// nil for an unauthenticated request.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey).(*Session)
	return session
}

// WithSession places a session on the context directly, for embedders
// that authenticate outside the jwt middleware and for tests.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionLoader runs after jwtauth.Verifier and turns verified token
// claims into a Session. Requests without a valid token are rejected
// before any read or write happens.
func SessionLoader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "authentication required"})
			return
		}

		session := &Session{}
		if v, ok := claims["user_id"].(string); ok {
			if id, err := uuid.Parse(v); err == nil {
				session.UserID = id
			}
		}
		if v, ok := claims["username"].(string); ok {
			session.Username = v
		}
		if v, ok := claims["is_admin"].(bool); ok {
			session.IsAdmin = v
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly rejects non-admin sessions with 403 before the handler
// runs. It assumes SessionLoader already ran.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil || !session.IsAdmin {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "admin privileges required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfToken extracts the CSRF token from the conventional header or
// form field.
func csrfToken(r *http.Request) string {
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	return r.PostFormValue("csrf_token")
}
