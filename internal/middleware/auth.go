package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bryanwahyu/endoscan/internal/domain/auth"
)

type contextKey string

const userKey contextKey = "user"

// SessionCookie is the cookie name accepted in place of the Authorization header.
const SessionCookie = "session"

// SignInPath is where unauthenticated clients are sent.
const SignInPath = "/auth"

// TokenFromRequest extracts the session token from the Authorization
// header, the session cookie, or the access_token query parameter
// (browsers cannot set headers on websocket upgrades).
func TokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("access_token")
}

// RequireSession validates the session once per request and stores the user
// in the request context. There is no refresh and no role check.
func RequireSession(authn auth.Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authn.CurrentUser(r.Context(), TokenFromRequest(r))
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					logger.ErrorContext(r.Context(), "session check failed", slog.Any("err", err))
				}
				writeUnauthenticated(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *auth.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user stored by RequireSession.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	u, ok := ctx.Value(userKey).(*auth.User)
	return u, ok && u != nil
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"code":     "UNAUTHENTICATED",
		"message":  "sign in required",
		"redirect": SignInPath,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
