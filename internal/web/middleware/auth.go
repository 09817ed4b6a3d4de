package middleware

import (
	"context"
	"net/http"

	"github.com/kozaktomas/facescan/internal/logger"
	"go.uber.org/zap"
)

type sessionKey struct{}

// writeJSONError writes {"error": msg} without depending on the handlers
// package.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAuth rejects requests without a valid session with 401. On success
// the session and an account-scoped logger are stored in the request context.
func RequireAuth(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := SetSessionInContext(r.Context(), session)
			ctx = logger.ContextWithLogger(ctx, logger.FromContext(ctx).With(zap.String("account_id", session.AccountID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext returns the authenticated session, or nil.
func GetSessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey{}).(*Session)
	return session
}

// SetSessionInContext attaches session to ctx. RequireAuth does this for
// live requests; tests call it directly.
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}
