package document_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/compliance-management/internal"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/core/events"
	"github.com/frahmantamala/compliance-management/internal/document"
	"github.com/frahmantamala/compliance-management/internal/generated"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

func TestDocument(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Suite")
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		store    *tenant.Store
		svc      *document.Service
		tenantID string
		actors   map[rbac.Role]*internal.CurrentUser
	)

	addUser := func(role rbac.Role) *internal.CurrentUser {
		u := userDatamodel.User{
			ID:       uuid.NewString(),
			Name:     string(role) + " User",
			Email:    string(role) + "@acme.example",
			Role:     string(role),
			Verified: true,
		}
		err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
			b.Users = append(b.Users, u)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return &internal.CurrentUser{
			UserID:      u.ID,
			TenantID:    tenantID,
			Name:        u.Name,
			Role:        u.Role,
			Permissions: rbac.Strings(rbac.PermissionsFor(role)),
		}
	}

	auditCount := func() int {
		var n int
		err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
			n = len(b.AuditLog)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store = tenant.NewStore(tenant.NewMemoryRepository(), logger)
		svc = document.NewService(store, events.NewEventBus(logger), generated.NewTemplateProvider(), logger)

		b, err := store.SetupTenant(ctx, tenant.SetupTenantParams{
			CompanyName:       "Acme Corp",
			ContactEmail:      "security@acme.example",
			LicenseKey:        "LIC-1",
			LicenseTier:       "enterprise",
			LicenseExpiry:     time.Now().Add(24 * time.Hour),
			AdminName:         "Ada Admin",
			AdminEmail:        "admin@acme.example",
			AdminPasswordHash: "hash",
		})
		Expect(err).NotTo(HaveOccurred())
		tenantID = b.Company.ID

		actors = map[rbac.Role]*internal.CurrentUser{}
		for _, role := range []rbac.Role{
			rbac.RoleCISO, rbac.RoleCTO, rbac.RoleCIO, rbac.RoleCEO,
			rbac.RoleSecurityAnalyst, rbac.RoleEmployee,
		} {
			actors[role] = addUser(role)
		}
	})

	create := func(asDraft bool) *documentDatamodel.PolicyDocument {
		doc, err := svc.CreateDocument(ctx, tenantID, actors[rbac.RoleSecurityAnalyst], document.CreateDocumentDTO{
			ControlID:   "AC-1",
			Domain:      "access control",
			Description: "access control policy and procedures",
			AsDraft:     asDraft,
		})
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	Describe("CreateDocument", func() {
		It("enters the chain at the first pending stage with generated content", func() {
			doc := create(false)
			Expect(doc.Status).To(Equal(document.StatusPendingCISO))
			Expect(doc.Version).To(Equal(int64(1)))
			Expect(doc.Content.Policy).NotTo(BeEmpty())
			Expect(doc.Content.Procedure).NotTo(BeEmpty())
			Expect(doc.Content.Guideline).NotTo(BeEmpty())
		})

		It("keeps a draft out of the chain until submitted", func() {
			doc := create(true)
			Expect(doc.Status).To(Equal(document.StatusDraft))

			submitted, err := svc.Submit(ctx, tenantID, doc.ID, actors[rbac.RoleSecurityAnalyst])
			Expect(err).NotTo(HaveOccurred())
			Expect(submitted.Status).To(Equal(document.StatusPendingCISO))
			Expect(submitted.Version).To(Equal(int64(2)))
		})

		It("refuses submit on a non-draft document", func() {
			doc := create(false)
			_, err := svc.Submit(ctx, tenantID, doc.ID, actors[rbac.RoleSecurityAnalyst])
			Expect(err).To(HaveOccurred())
		})

		It("denies creation without the create permission", func() {
			_, err := svc.CreateDocument(ctx, tenantID, actors[rbac.RoleEmployee], document.CreateDocumentDTO{
				ControlID: "AC-1",
			})
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})
	})

	Describe("Decide", func() {
		var doc *documentDatamodel.PolicyDocument

		BeforeEach(func() {
			doc = create(false)
		})

		decide := func(actor *internal.CurrentUser, decision string, version int64) (*documentDatamodel.PolicyDocument, error) {
			return svc.Decide(ctx, tenantID, doc.ID, actor, document.DecisionDTO{
				Decision: decision,
				Comments: "reviewed",
				Version:  version,
			})
		}

		It("walks the full chain to approved in role order", func() {
			chain := []struct {
				role rbac.Role
				next string
			}{
				{rbac.RoleCISO, document.StatusPendingCTO},
				{rbac.RoleCTO, document.StatusPendingCIO},
				{rbac.RoleCIO, document.StatusPendingCEO},
				{rbac.RoleCEO, document.StatusApproved},
			}

			version := doc.Version
			for _, step := range chain {
				updated, err := decide(actors[step.role], document.DecisionApproved, version)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Status).To(Equal(step.next))
				version = updated.Version
			}

			final, err := svc.GetDocument(ctx, tenantID, doc.ID, actors[rbac.RoleEmployee])
			Expect(err).NotTo(HaveOccurred())
			Expect(final.ApprovalHistory).To(HaveLen(4))
			Expect(final.ApprovalHistory[3].Role).To(Equal(string(rbac.RoleCEO)))
			Expect(final.Version).To(Equal(int64(5)))
		})

		It("refuses a decision from a role that does not own the stage", func() {
			before := auditCount()

			_, err := decide(actors[rbac.RoleCTO], document.DecisionApproved, doc.Version)
			Expect(err).To(Equal(internal.ErrUnauthorized))

			Expect(auditCount()).To(Equal(before), "refused decision leaves no trace")
			current, err := svc.GetDocument(ctx, tenantID, doc.ID, actors[rbac.RoleEmployee])
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(document.StatusPendingCISO))
			Expect(current.ApprovalHistory).To(BeEmpty())
		})

		It("refuses a decision without the approve permission", func() {
			_, err := decide(actors[rbac.RoleSecurityAnalyst], document.DecisionApproved, doc.Version)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})

		It("makes rejection terminal", func() {
			updated, err := decide(actors[rbac.RoleCISO], document.DecisionRejected, doc.Version)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(document.StatusRejected))

			_, err = decide(actors[rbac.RoleCISO], document.DecisionApproved, updated.Version)
			Expect(err).To(Equal(internal.ErrTerminalStatus))
		})

		It("gives the loser of two same-stage decisions a stale-state error", func() {
			winner, err := decide(actors[rbac.RoleCISO], document.DecisionApproved, doc.Version)
			Expect(err).NotTo(HaveOccurred())
			Expect(winner.Status).To(Equal(document.StatusPendingCTO))

			// A second CISO decision still holding version 1 lost the
			// race; the answer is stale state, not a role refusal.
			_, err = decide(actors[rbac.RoleCISO], document.DecisionApproved, doc.Version)
			Expect(err).To(Equal(internal.ErrStaleState))

			current, err := svc.GetDocument(ctx, tenantID, doc.ID, actors[rbac.RoleEmployee])
			Expect(err).NotTo(HaveOccurred())
			Expect(current.ApprovalHistory).To(HaveLen(1))
			Expect(current.Version).To(Equal(winner.Version))
		})

		It("answers a stale rejection race the same way", func() {
			_, err := decide(actors[rbac.RoleCISO], document.DecisionRejected, doc.Version)
			Expect(err).NotTo(HaveOccurred())

			_, err = decide(actors[rbac.RoleCISO], document.DecisionApproved, doc.Version)
			Expect(err).To(Equal(internal.ErrStaleState))
		})

		It("rejects a decision against a stale version", func() {
			updated, err := decide(actors[rbac.RoleCISO], document.DecisionApproved, doc.Version)
			Expect(err).NotTo(HaveOccurred())

			// A second decider still holding version 1.
			_, err = decide(actors[rbac.RoleCTO], document.DecisionApproved, doc.Version)
			Expect(err).To(Equal(internal.ErrStaleState))

			_, err = decide(actors[rbac.RoleCTO], document.DecisionApproved, updated.Version)
			Expect(err).NotTo(HaveOccurred())
		})

		It("records the rejection in the audit trail", func() {
			_, err := decide(actors[rbac.RoleCISO], document.DecisionRejected, doc.Version)
			Expect(err).NotTo(HaveOccurred())

			err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				last := b.AuditLog[len(b.AuditLog)-1]
				Expect(last.Action).To(Equal(auditDatamodel.ActionDocumentRejected))
				Expect(last.TargetID).To(Equal(doc.ID))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("RunAutomatedAudit", func() {
		It("advances a complete document three stages with signed agent steps", func() {
			doc := create(false)

			steps, err := svc.RunAutomatedAudit(ctx, tenantID, doc.ID, actors[rbac.RoleSecurityAnalyst])
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(HaveLen(3))
			for _, step := range steps {
				Expect(step.Decision).To(Equal(document.DecisionPassed))
				Expect(step.Role).To(Equal(string(rbac.RoleAuditAgent)))
				Expect(step.SignatureID).To(HavePrefix("agent-"))
			}

			current, err := svc.GetDocument(ctx, tenantID, doc.ID, actors[rbac.RoleEmployee])
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(document.StatusPendingCEO))

			// The CEO finishes what the agents started.
			final, err := svc.Decide(ctx, tenantID, doc.ID, actors[rbac.RoleCEO], document.DecisionDTO{
				Decision: document.DecisionApproved,
				Version:  current.Version,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Status).To(Equal(document.StatusApproved))
		})

		It("rejects a document with missing sections at the failing agent", func() {
			doc := create(false)
			err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.DocumentByID(doc.ID).Content.Procedure = ""
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			steps, err := svc.RunAutomatedAudit(ctx, tenantID, doc.ID, actors[rbac.RoleSecurityAnalyst])
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(HaveLen(1))
			Expect(steps[0].Decision).To(Equal(document.DecisionFailed))
			Expect(steps[0].Comments).To(ContainSubstring("procedure"))

			current, err := svc.GetDocument(ctx, tenantID, doc.ID, actors[rbac.RoleEmployee])
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Status).To(Equal(document.StatusRejected))
		})

		It("refuses to audit a draft", func() {
			doc := create(true)
			_, err := svc.RunAutomatedAudit(ctx, tenantID, doc.ID, actors[rbac.RoleSecurityAnalyst])
			Expect(err).To(HaveOccurred())
		})

		It("records system audit entries for agent decisions", func() {
			doc := create(false)
			_, err := svc.RunAutomatedAudit(ctx, tenantID, doc.ID, actors[rbac.RoleSecurityAnalyst])
			Expect(err).NotTo(HaveOccurred())

			err = store.View(ctx, tenantID, func(b *tenant.Bundle) error {
				last := b.AuditLog[len(b.AuditLog)-1]
				Expect(last.Action).To(Equal(auditDatamodel.ActionDocumentApproved))
				Expect(last.ActorName).To(Equal("compliance-agent"))
				Expect(last.ActorID).To(BeEmpty())
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("ListDocuments", func() {
		It("returns documents newest first", func() {
			first := create(false)
			second, err := svc.CreateDocument(ctx, tenantID, actors[rbac.RoleSecurityAnalyst], document.CreateDocumentDTO{
				ControlID: "IR-4",
				AsDraft:   true,
			})
			Expect(err).NotTo(HaveOccurred())

			docs, err := svc.ListDocuments(ctx, tenantID, actors[rbac.RoleEmployee])
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal(second.ID))
			Expect(docs[1].ID).To(Equal(first.ID))
		})

		It("denies listing without the read permission", func() {
			stranger := &internal.CurrentUser{UserID: uuid.NewString(), TenantID: tenantID}
			_, err := svc.ListDocuments(ctx, tenantID, stranger)
			Expect(err).To(Equal(internal.ErrUnauthorized))
		})
	})
})
