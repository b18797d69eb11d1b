package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/pkg/httputil"
	"github.com/jihadsmadi/kindearth-backend/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Authenticate validates the access token and stores its claims in the
// request context. The token is read from the access_token cookie first,
// falling back to the Authorization bearer header for non-browser clients.
// Missing or invalid credentials produce 401.
func Authenticate(tokens *auth.TokenManager, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				writeUnauthorized(w, "missing credentials")
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithUserID(ctx, claims.UserID())
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePolicy rejects authenticated users whose roles do not intersect the
// policy. Runs after Authenticate; a missing claim set means the route was
// wired without the gate and is treated as forbidden.
func RequirePolicy(policy []domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(policy))
	for _, role := range policy {
		allowed[string(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeForbidden(w)
				return
			}

			for _, role := range claims.Roles {
				if _, ok := allowed[role]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeForbidden(w)
		})
	}
}

// ClaimsFromContext extracts the authenticated user's claims, or nil when
// the request did not pass the auth gate.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// tokenFromRequest reads the access token, preferring the cookie over the
// Authorization header.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

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

func writeUnauthorized(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}

func writeForbidden(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "insufficient permissions"},
	})
}
