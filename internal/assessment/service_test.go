package assessment_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/assessment"
	assessmentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/assessment"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

func TestAssessment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Assessment Suite")
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		store    *tenant.Store
		svc      *assessment.Service
		tenantID string
		admin    *internal.CurrentUser
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store = tenant.NewStore(tenant.NewMemoryRepository(), logger)
		svc = assessment.NewService(store, logger)

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

		err = store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
			b.Assessments = append(b.Assessments, assessmentDatamodel.Item{
				ControlID:   "AC-1",
				Domain:      "access control",
				Description: "access control policy and procedures",
				Status:      assessmentDatamodel.StatusNotImplemented,
			})
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("lists the tenant's assessment items", func() {
		items, err := svc.List(ctx, admin)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(1))
		Expect(items[0].ControlID).To(Equal("AC-1"))
	})

	It("updates a control's status with notes and records it", func() {
		notes := "enforced via IdP policy"
		item, err := svc.UpdateStatus(ctx, admin, "AC-1", assessment.UpdateStatusDTO{
			Status: string(assessmentDatamodel.StatusImplemented),
			Notes:  &notes,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(item.Status).To(Equal(assessmentDatamodel.StatusImplemented))
		Expect(item.Notes).To(Equal(notes))
		Expect(item.UpdatedBy).To(Equal(admin.UserID))

		err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
			last := b.AuditLog[len(b.AuditLog)-1]
			Expect(last.Action).To(Equal(auditDatamodel.ActionAssessmentUpdated))
			Expect(last.TargetID).To(Equal("AC-1"))
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an unknown status value", func() {
		_, err := svc.UpdateStatus(ctx, admin, "AC-1", assessment.UpdateStatusDTO{
			Status: "done",
		})
		Expect(err).To(HaveOccurred())
	})

	It("returns not-found for an unknown control", func() {
		_, err := svc.UpdateStatus(ctx, admin, "XX-9", assessment.UpdateStatusDTO{
			Status: string(assessmentDatamodel.StatusImplemented),
		})
		Expect(err).To(HaveOccurred())
	})

	It("requires the assessment update permission", func() {
		employee := &internal.CurrentUser{
			UserID:      admin.UserID,
			TenantID:    tenantID,
			Role:        string(rbac.RoleEmployee),
			Permissions: rbac.Strings(rbac.PermissionsFor(rbac.RoleEmployee)),
		}
		_, err := svc.UpdateStatus(ctx, employee, "AC-1", assessment.UpdateStatusDTO{
			Status: string(assessmentDatamodel.StatusImplemented),
		})
		Expect(err).To(Equal(internal.ErrUnauthorized))
	})
})
