package middleware

import (
	"context"
	"net/http"

	"github.com/orgstack/identity-admin/internal/http/response"
)

// CapabilityChecker answers whether a user holds a named capability.
type CapabilityChecker interface {
	Can(ctx context.Context, userID uint, capability string) (bool, error)
}

// RequireCapability gates a route on the authorization service's decision.
// A resolver error is a 500, not a deny, so staleness never masquerades as
// refusal.
func RequireCapability(authz CapabilityChecker, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			allowed, err := authz.Can(r.Context(), userID, capability)
			if err != nil {
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "authorization check failed", nil)
				return
			}
			if !allowed {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permission", map[string]string{"required": capability})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
