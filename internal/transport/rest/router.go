package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/compliance-management/internal/assessment"
	"github.com/frahmantamala/compliance-management/internal/audit"
	"github.com/frahmantamala/compliance-management/internal/auth"
	"github.com/frahmantamala/compliance-management/internal/document"
	"github.com/frahmantamala/compliance-management/internal/license"
	"github.com/frahmantamala/compliance-management/internal/obs"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
	"github.com/frahmantamala/compliance-management/internal/transport/middleware"
	"github.com/frahmantamala/compliance-management/internal/transport/swagger"
	"github.com/frahmantamala/compliance-management/internal/user"
)

// Handlers bundles every feature handler the router mounts.
type Handlers struct {
	Auth       *auth.Handler
	Tenant     *tenant.Handler
	User       *user.Handler
	Document   *document.Handler
	Audit      *audit.Handler
	License    *license.Handler
	Assessment *assessment.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, licenseService *license.Service, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(obs.Instrument)

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())
	router.Handle("/metrics", obs.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public tenant signup.
		r.Post("/tenants", h.Tenant.Setup)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/mfa/verify", h.Auth.VerifyMFA)
			sr.Post("/password/forgot", h.Auth.RequestPasswordReset)
			sr.Post("/password/reset", h.Auth.ResetPassword)
		})

		// Everything below requires a live session.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Post("/auth/logout", h.Auth.Logout)
			pr.Get("/auth/session", h.Auth.SessionStatus)
			pr.Post("/auth/session/confirm", h.Auth.ConfirmPresence)
			pr.Post("/auth/mfa/enroll", h.Auth.EnrollMFA)
			pr.Post("/auth/mfa/confirm", h.Auth.ConfirmMFA)
			pr.Post("/auth/mfa/disable", h.Auth.DisableMFA)
			pr.Post("/auth/password", h.User.ChangePassword)

			// License and profile administration stays reachable for a
			// lapsed tenant, otherwise it could never recover. Only
			// holders of the administration permissions get the
			// exception surface.
			pr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequirePermissions(
					string(rbac.PermTenantUpdate),
					string(rbac.PermLicenseUpdate),
				))

				ar.Get("/license", h.License.Status)
				ar.Put("/license", h.License.Renew)

				ar.Get("/tenant", h.Tenant.GetProfile)
				ar.Patch("/tenant", h.Tenant.UpdateProfile)
			})

			// Compliance features sit behind the license gate.
			pr.Group(func(lr chi.Router) {
				lr.Use(middleware.RequireLicense(licenseService))

				lr.Route("/users", func(ur chi.Router) {
					ur.Get("/", h.User.ListUsers)
					ur.Get("/{id}", h.User.GetUser)

					ur.Group(func(mr chi.Router) {
						mr.Use(middleware.RequirePermissions(
							string(rbac.PermUsersCreate),
							string(rbac.PermUsersUpdate),
							string(rbac.PermUsersDelete),
						))
						mr.Post("/", h.User.CreateUser)
						mr.Patch("/{id}", h.User.UpdateUser)
						mr.Delete("/{id}", h.User.DeleteUser)
					})
				})

				lr.Route("/documents", func(dr chi.Router) {
					dr.Post("/", h.Document.CreateDocument)
					dr.Get("/", h.Document.ListDocuments)
					dr.Get("/{id}", h.Document.GetDocument)
					dr.Post("/{id}/submit", h.Document.SubmitDocument)

					dr.Group(func(ar chi.Router) {
						ar.Use(middleware.RequirePermissions(string(rbac.PermDocumentsApprove)))
						ar.Patch("/{id}/approve", h.Document.ApproveDocument)
						ar.Patch("/{id}/reject", h.Document.RejectDocument)
					})

					dr.Post("/{id}/audit-run", h.Document.RunAutomatedAudit)
				})

				lr.Route("/assessments", func(ar chi.Router) {
					ar.Get("/", h.Assessment.ListAssessments)
					ar.Patch("/{controlID}", h.Assessment.UpdateStatus)
				})

				lr.Group(func(ar chi.Router) {
					ar.Use(middleware.RequirePermissions(string(rbac.PermAuditRead)))
					ar.Get("/audit", h.Audit.ListEntries)
				})
			})
		})
	})
}
