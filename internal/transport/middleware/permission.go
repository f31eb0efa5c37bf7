package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/compliance-management/internal"
)

// RequirePermissions rejects the request unless the authenticated user
// holds at least one of the listed permissions. Services still enforce
// their own checks; this keeps obviously unauthorized requests out of
// the handlers.
func RequirePermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := internal.UserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, required := range permissions {
				if user.HasPermission(required) {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("access denied: missing permission",
				"user_id", user.UserID,
				"required_permissions", permissions)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		})
	}
}
