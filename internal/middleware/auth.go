package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ruralpay/wallet/internal/services"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	sessionIDKey contextKey = "sessionID"
	tokenKey     contextKey = "token"
)

// TokenValidator resolves a bearer token to its session
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// Auth rejects requests without a live session token and stores the session
// id and raw token in the request context
func Auth(validator TokenValidator, log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
				return
			}

			token := parts[1]
			sessionID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, services.ErrInvalidToken) {
					log.WithError(err).Error("Token validation failed")
					services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
					return
				}
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the session id set by Auth
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// Token returns the bearer token set by Auth
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithSession stores a session id and token the way Auth does
func WithSession(ctx context.Context, sessionID, token string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, tokenKey, token)
}
