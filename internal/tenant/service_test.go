package tenant_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/compliance-management/internal"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

func TestTenant(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tenant Suite")
}

func newTestStore() *tenant.Store {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return tenant.NewStore(tenant.NewMemoryRepository(), logger)
}

func setupTenant(store *tenant.Store, adminEmail string) *tenant.Bundle {
	b, err := store.SetupTenant(context.Background(), tenant.SetupTenantParams{
		CompanyName:       "Acme Corp",
		Sector:            "Finance",
		ContactEmail:      "security@acme.example",
		LicenseKey:        "LIC-1",
		LicenseTier:       "standard",
		LicenseExpiry:     time.Now().Add(24 * time.Hour),
		AdminName:         "Ada Admin",
		AdminEmail:        adminEmail,
		AdminPasswordHash: "hash",
	})
	Expect(err).NotTo(HaveOccurred())
	return b
}

var _ = Describe("Store", func() {
	var (
		store    *tenant.Store
		tenantID string
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newTestStore()
		b := setupTenant(store, "admin@acme.example")
		tenantID = b.Company.ID
	})

	Describe("SetupTenant", func() {
		It("makes the first user an administrator and verifies it", func() {
			var role string
			var verified bool
			err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				Expect(b.Users).To(HaveLen(1))
				role = b.Users[0].Role
				verified = b.Users[0].Verified
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(string(rbac.RoleAdministrator)))
			Expect(verified).To(BeTrue())
		})

		It("writes the tenant-created audit entry", func() {
			err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				Expect(b.AuditLog).To(HaveLen(1))
				Expect(b.AuditLog[0].Action).To(Equal(auditDatamodel.ActionTenantCreate))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses a second tenant reusing the admin email", func() {
			_, err := store.SetupTenant(ctx, tenant.SetupTenantParams{
				CompanyName:       "Other Corp",
				ContactEmail:      "other@other.example",
				LicenseKey:        "LIC-2",
				LicenseExpiry:     time.Now().Add(time.Hour),
				AdminName:         "Bob",
				AdminEmail:        "admin@acme.example",
				AdminPasswordHash: "hash",
			})
			Expect(err).To(Equal(internal.ErrDuplicateEmail))
		})
	})

	Describe("Update", func() {
		It("bumps the version on every committed mutation", func() {
			err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.Company.Sector = "Healthcare"
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				Expect(b.Version).To(Equal(int64(2)))
				Expect(b.Company.Sector).To(Equal("Healthcare"))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("discards every change when the mutation function fails", func() {
			boom := errors.New("boom")
			err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.Company.Sector = "Healthcare"
				return boom
			})
			Expect(err).To(Equal(boom))

			err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				Expect(b.Company.Sector).To(Equal("Finance"))
				Expect(b.Version).To(Equal(int64(1)))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("serializes concurrent mutations to the same tenant", func() {
			done := make(chan struct{})
			for i := 0; i < 10; i++ {
				go func() {
					defer GinkgoRecover()
					err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
						b.Company.Sector = "Contended"
						return nil
					})
					Expect(err).NotTo(HaveOccurred())
					done <- struct{}{}
				}()
			}
			for i := 0; i < 10; i++ {
				Eventually(done).Should(Receive())
			}

			err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				Expect(b.Version).To(Equal(int64(11)))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("View", func() {
		It("discards mutations made through a view", func() {
			err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				b.Company.Name = "Mutated"
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				Expect(b.Company.Name).To(Equal("Acme Corp"))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns not-found for an unknown tenant", func() {
			err := store.View(ctx, "nope", func(b *tenant.Bundle) error { return nil })
			Expect(err).To(Equal(internal.ErrTenantNotFound))
		})
	})

	Describe("UpdateProfile", func() {
		var admin *internal.CurrentUser

		BeforeEach(func() {
			err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				admin = &internal.CurrentUser{
					UserID:      b.Users[0].ID,
					TenantID:    tenantID,
					Name:        b.Users[0].Name,
					Role:        b.Users[0].Role,
					Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleAdministrator)),
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("patches the company and records the profile update", func() {
			sector := "Healthcare"
			company, err := store.UpdateProfile(ctx, admin, tenant.UpdateProfileDTO{
				Sector: &sector,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(company.Sector).To(Equal("Healthcare"))
			Expect(company.Name).To(Equal("Acme Corp"))

			err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				last := b.AuditLog[len(b.AuditLog)-1]
				Expect(last.Action).To(Equal(auditDatamodel.ActionProfileUpdated))
				Expect(last.ActorID).To(Equal(admin.UserID))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("denies the update without the tenant permission", func() {
			name := "Evil Corp"
			employee := &internal.CurrentUser{
				UserID:      admin.UserID,
				TenantID:    tenantID,
				Role:        string(rbac.RoleEmployee),
				Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleEmployee)),
			}
			_, err := store.UpdateProfile(ctx, employee, tenant.UpdateProfileDTO{Name: &name})
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})
	})

	Describe("FindUserByEmail", func() {
		It("discovers the tenant from the email", func() {
			id, u, err := store.FindUserByEmail(ctx, "admin@acme.example")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(tenantID))
			Expect(u.Name).To(Equal("Ada Admin"))
		})

		It("reports not-found for unknown emails", func() {
			_, _, err := store.FindUserByEmail(ctx, "ghost@acme.example")
			Expect(err).To(Equal(internal.ErrUserNotFound))
		})
	})
})
