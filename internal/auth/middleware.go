package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"portfolio-server/internal/web"
)

type contextKey struct{}

var identityKey contextKey

// FromContext returns the authenticated identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware requires a valid bearer access token and attaches the identity
// to the request context. Failures short-circuit with 401 before any
// downstream handler runs; expired and malformed tokens get distinct codes.
func Middleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				web.Error(w, http.StatusUnauthorized, web.CodeTokenRequired, "Access token required")
				return
			}

			identity, err := tokens.VerifyAccessToken(token)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					web.Error(w, http.StatusUnauthorized, web.CodeTokenExpired, "Access token expired")
					return
				}
				web.Error(w, http.StatusUnauthorized, web.CodeInvalidToken, "Invalid access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// OptionalMiddleware attaches the identity when a valid token is present but
// never blocks the request. Used for public-but-personalizable endpoints.
func OptionalMiddleware(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if identity, err := tokens.VerifyAccessToken(token); err == nil {
					r = r.WithContext(withIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates on the authenticated role: 401 when no identity is
// attached, 403 when the role is not in the allowed set. Must run inside
// Middleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := FromContext(r.Context())
			if !ok {
				web.Error(w, http.StatusUnauthorized, web.CodeAuthRequired, "Authentication required")
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				web.Error(w, http.StatusForbidden, web.CodeForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates on the admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(RoleAdmin)
}

// RequireInstructor admits instructors and admins.
func RequireInstructor() func(http.Handler) http.Handler {
	return RequireRole(RoleInstructor, RoleAdmin)
}
