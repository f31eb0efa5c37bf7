package rbac_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/rbac"
)

func TestRBAC(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RBAC Suite")
}

var _ = Describe("Resolve", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Now()
	})

	It("grants the administrator the full management set", func() {
		u := &userDatamodel.User{Role: string(rbac.RoleAdministrator)}
		perms := rbac.Resolve(u, now)

		Expect(rbac.HasPermission(perms, rbac.PermUsersCreate)).To(BeTrue())
		Expect(rbac.HasPermission(perms, rbac.PermUsersDelete)).To(BeTrue())
		Expect(rbac.HasPermission(perms, rbac.PermLicenseUpdate)).To(BeTrue())
		Expect(rbac.HasPermission(perms, rbac.PermTenantUpdate)).To(BeTrue())
	})

	It("does not let the administrator approve documents", func() {
		u := &userDatamodel.User{Role: string(rbac.RoleAdministrator)}
		perms := rbac.Resolve(u, now)

		Expect(rbac.HasPermission(perms, rbac.PermDocumentsApprove)).To(BeFalse())
	})

	It("grants approvers the approve permission", func() {
		for _, role := range []rbac.Role{rbac.RoleCISO, rbac.RoleCTO, rbac.RoleCIO, rbac.RoleCEO} {
			u := &userDatamodel.User{Role: string(role)}
			perms := rbac.Resolve(u, now)
			Expect(rbac.HasPermission(perms, rbac.PermDocumentsApprove)).To(BeTrue(), string(role))
		}
	})

	It("limits employees to reading documents", func() {
		u := &userDatamodel.User{Role: string(rbac.RoleEmployee)}
		perms := rbac.Resolve(u, now)

		Expect(perms).To(ConsistOf(rbac.PermDocumentsRead))
	})

	It("downgrades an expired account to the employee set", func() {
		expired := now.Add(-time.Hour)
		u := &userDatamodel.User{
			Role:            string(rbac.RoleCISO),
			AccessExpiresAt: &expired,
		}
		perms := rbac.Resolve(u, now)

		Expect(perms).To(ConsistOf(rbac.PermDocumentsRead))
		Expect(u.Role).To(Equal(string(rbac.RoleCISO)), "nominal role is untouched")
	})

	It("keeps full permissions while the expiry is still in the future", func() {
		future := now.Add(time.Hour)
		u := &userDatamodel.User{
			Role:            string(rbac.RoleCISO),
			AccessExpiresAt: &future,
		}
		perms := rbac.Resolve(u, now)

		Expect(rbac.HasPermission(perms, rbac.PermDocumentsApprove)).To(BeTrue())
	})

	It("returns nothing for a nil user or unknown role", func() {
		Expect(rbac.Resolve(nil, now)).To(BeNil())
		Expect(rbac.Resolve(&userDatamodel.User{Role: "Intern"}, now)).To(BeNil())
	})
})

var _ = Describe("ValidRole", func() {
	It("accepts every assignable role", func() {
		for _, role := range rbac.AssignableRoles {
			Expect(rbac.ValidRole(string(role))).To(BeTrue(), string(role))
		}
	})

	It("rejects the audit agent pseudo-role", func() {
		Expect(rbac.ValidRole(string(rbac.RoleAuditAgent))).To(BeFalse())
	})

	It("rejects arbitrary strings", func() {
		Expect(rbac.ValidRole("superuser")).To(BeFalse())
	})
})
