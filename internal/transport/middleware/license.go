package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/compliance-management/internal"
)

// LicenseChecker reports whether a tenant currently holds a usable
// license.
type LicenseChecker interface {
	Licensed(ctx context.Context, tenantID string) (bool, error)
}

// RequireLicense gates the compliance features behind an active
// license. Authentication, profile, and license renewal stay outside
// this middleware so a lapsed tenant can still log in and recover.
func RequireLicense(checker LicenseChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := internal.UserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			licensed, err := checker.Licensed(r.Context(), user.TenantID)
			if err != nil {
				slog.Error("license check failed", "tenant_id", user.TenantID, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !licensed {
				status, body := internal.ErrLicenseRequired.ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				if err := json.NewEncoder(w).Encode(body); err != nil {
					slog.Error("failed to encode license error", "error", err)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
