package audit_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		store    *tenant.Store
		svc      *audit.Service
		tenantID string
		admin    *internal.CurrentUser
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store = tenant.NewStore(tenant.NewMemoryRepository(), logger)
		svc = audit.NewService(store, logger)

		b, err := store.SetupTenant(ctx, tenant.SetupTenantParams{
			CompanyName:       "Acme Corp",
			ContactEmail:      "security@acme.example",
			LicenseKey:        "LIC-1",
			LicenseExpiry:     time.Now().Add(24 * time.Hour),
			AdminName:         "Ada Admin",
			AdminEmail:        "admin@acme.example",
			AdminPasswordHash: "hash",
		})
		Expect(err).NotTo(HaveOccurred())
		tenantID = b.Company.ID
		admin = &internal.CurrentUser{
			UserID:      b.Users[0].ID,
			TenantID:    tenantID,
			Name:        b.Users[0].Name,
			Role:        b.Users[0].Role,
			Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleAdministrator)),
		}

		// Setup wrote one entry already; add nine more in known order.
		err = store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
			for i := 1; i <= 9; i++ {
				audit.RecordSystem(b, "system", auditDatamodel.ActionLicenseUpdated,
					fmt.Sprintf("entry %d", i), tenantID)
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists entries newest first", func() {
		entries, err := svc.List(ctx, tenantID, admin, 50, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(10))
		Expect(entries[0].Details).To(Equal("entry 9"))
		Expect(entries[9].Action).To(Equal(auditDatamodel.ActionTenantCreate))
	})

	It("pages with limit and offset", func() {
		page, err := svc.List(ctx, tenantID, admin, 3, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(3))
		Expect(page[0].Details).To(Equal("entry 9"))
		Expect(page[2].Details).To(Equal("entry 7"))

		page, err = svc.List(ctx, tenantID, admin, 3, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(3))
		Expect(page[0].Details).To(Equal("entry 6"))

		page, err = svc.List(ctx, tenantID, admin, 3, 9)
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(1))
		Expect(page[0].Action).To(Equal(auditDatamodel.ActionTenantCreate))
	})

	It("falls back to the default limit for out-of-range values", func() {
		entries, err := svc.List(ctx, tenantID, admin, -5, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(10))

		entries, err = svc.List(ctx, tenantID, admin, 0, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("denies reads without the audit permission", func() {
		employee := &internal.CurrentUser{
			UserID:      admin.UserID,
			TenantID:    tenantID,
			Role:        string(rbac.RoleEmployee),
			Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleEmployee)),
		}
		_, err := svc.List(ctx, tenantID, employee, 50, 0)
		Expect(err).To(Equal(internal.ErrUnauthorized))
	})

	It("propagates unknown tenants", func() {
		_, err := svc.List(ctx, "no-such-tenant", admin, 50, 0)
		Expect(err).To(Equal(internal.ErrTenantNotFound))
	})
})
