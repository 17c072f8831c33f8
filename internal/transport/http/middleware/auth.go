package middleware

import (
	"context"
	"net/http"

	jwtinfra "github.com/garage-notify/internal/infrastructure/jwt"
	"github.com/garage-notify/internal/pkg/token"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenStr string, want jwtinfra.Kind) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer access token and injects claims into context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := token.FromHeader(r.Header.Get("Authorization"))
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := verifier.Verify(tokenStr, jwtinfra.KindAccess)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	id, err := c.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}
