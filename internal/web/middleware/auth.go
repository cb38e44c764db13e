package middleware

import (
	"context"
	"net/http"

	"github.com/kozaktomas/suraksha/internal/database"
)

type contextKey string

const sessionContextKey contextKey = "session"

// unauthorizedBody matches the handlers' {"error": ...} shape.
const unauthorizedBody = `{"error":"unauthorized"}` + "\n"

// RequireAuth rejects requests without a live session and stores the
// session in the request context for the next handler.
func RequireAuth(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="suraksha"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(unauthorizedBody))
				return
			}
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *database.Session {
	session, _ := ctx.Value(sessionContextKey).(*database.Session)
	return session
}

// ProfileIDFromContext returns the authenticated profile id, or "" without a session.
func ProfileIDFromContext(ctx context.Context) string {
	if s := GetSessionFromContext(ctx); s != nil {
		return s.ProfileID
	}
	return ""
}

// SetSessionInContext adds a session to the context.
func SetSessionInContext(ctx context.Context, session *database.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
