package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	// CuratorContextKey is the key used to store curator claims in context
	CuratorContextKey contextKey = "curator"
)

// Middleware creates an authentication middleware
func Middleware(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := service.ValidateToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CuratorContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCuratorFromContext retrieves curator claims from the request context
func GetCuratorFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(CuratorContextKey).(*Claims)
	return claims, ok
}

// CuratorEmail returns the email of the authenticated curator, or "" for
// anonymous requests.
func CuratorEmail(ctx context.Context) string {
	if claims, ok := GetCuratorFromContext(ctx); ok {
		return claims.Email
	}
	return ""
}

// MayModify reports whether the curator in ctx may change a resource
// attributed to owner. Resources without an owner are shared.
func MayModify(ctx context.Context, owner string) bool {
	return owner == "" || strings.EqualFold(owner, CuratorEmail(ctx))
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}
