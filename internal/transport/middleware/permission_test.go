package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/transport/middleware"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("RequirePermissions", func() {
	var next http.Handler

	serve := func(guard func(http.Handler) http.Handler, user *internal.CurrentUser) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		if user != nil {
			req = req.WithContext(internal.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		guard(next).ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	It("passes a holder of any listed permission through", func() {
		guard := middleware.RequirePermissions(
			string(rbac.PermTenantUpdate),
			string(rbac.PermLicenseUpdate),
		)
		admin := &internal.CurrentUser{
			UserID:      "u-1",
			Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleAdministrator)),
		}
		Expect(serve(guard, admin).Code).To(Equal(http.StatusOK))
	})

	It("forbids a user holding none of the listed permissions", func() {
		guard := middleware.RequirePermissions(string(rbac.PermTenantUpdate))
		employee := &internal.CurrentUser{
			UserID:      "u-2",
			Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleEmployee)),
		}
		Expect(serve(guard, employee).Code).To(Equal(http.StatusForbidden))
	})

	It("rejects requests with no authenticated user", func() {
		guard := middleware.RequirePermissions(string(rbac.PermTenantUpdate))
		Expect(serve(guard, nil).Code).To(Equal(http.StatusUnauthorized))
	})
})
