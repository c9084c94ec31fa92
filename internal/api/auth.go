package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/nerrad567/gray-logic-snooze/internal/auth"
)

// ctxKeyClaims is the context key for the authenticated caller's claims.
const ctxKeyClaims contextKey = "claims"

// authenticate validates a raw JWT against the configured secret.
func (s *Server) authenticate(token string) (*auth.CustomClaims, error) {
	return auth.ParseToken(token, s.secCfg.JWT.Secret)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func withClaims(ctx context.Context, claims *auth.CustomClaims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// claimsFrom returns the claims stored by authMiddleware, or nil.
func claimsFrom(ctx context.Context) *auth.CustomClaims {
	claims, _ := ctx.Value(ctxKeyClaims).(*auth.CustomClaims) //nolint:errcheck // nil when unauthenticated
	return claims
}

// requirePermission rejects callers whose role lacks perm.
// It must run after authMiddleware.
func requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFrom(r.Context())
			if claims == nil {
				writeUnauthorized(w, "authentication required")
				return
			}
			if !auth.HasPermission(claims.Role, perm) {
				writeForbidden(w, "role "+string(claims.Role)+" lacks "+string(perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
