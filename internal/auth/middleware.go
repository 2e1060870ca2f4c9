package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey keeps this package's context values private.
type contextKey string

const claimsKey contextKey = "claims"

// RevocationChecker answers whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RequireAuth rejects requests without a valid, unrevoked token with 401 and
// stores the token's claims in the request context otherwise.
//
// The token is read from "Authorization: Bearer <jwt>", falling back to the
// "token" cookie set by the GitHub callback. If the revocation store cannot
// be reached the request is refused.
func RequireAuth(tokens *TokenService, revoked RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.Validate(tokenFromRequest(r))
			if err != nil {
				unauthorized(w)
				return
			}

			isRevoked, err := revoked.IsRevoked(r.Context(), claims.TokenID)
			if err != nil {
				logger.Error("revocation check failed",
					slog.String("user_id", claims.UserID),
					slog.String("error", err.Error()),
				)
				unauthorized(w)
				return
			}
			if isRevoked {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user's id, or ("", false) on
// an anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, c.UserID != ""
}

// ClaimsFromContext returns the claims RequireAuth stored.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// WithClaims returns ctx carrying c. Handler tests use it to skip the
// middleware.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
}
