package document

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
	"github.com/frahmantamala/compliance-management/internal/core/events"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

// ContentProvider produces the generated policy payload for a control.
// The lifecycle treats the payload as opaque.
type ContentProvider interface {
	Generate(ctx context.Context, controlID, domain, description string) (documentDatamodel.GeneratedContent, error)
}

// Service drives the approval state machine. Every transition applies
// as one tenant-store mutation: state change, approval step, and audit
// entry commit together or not at all. Notifications go out on the
// event bus after commit and never block or fail a transition.
type Service struct {
	store   *tenant.Store
	bus     *events.EventBus
	content ContentProvider
	logger  *slog.Logger
}

func NewService(store *tenant.Store, bus *events.EventBus, content ContentProvider, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		bus:     bus,
		content: content,
		logger:  logger,
	}
}

// decisionActor identifies who (or what) produced a decision. The
// automated audit agent is an alternative decision source into the
// same transition function, not a separate state machine.
type decisionActor struct {
	userID      string
	name        string
	role        rbac.Role
	permissions []rbac.Permission
	signatureID string
	automated   bool
}

func (s *Service) CreateDocument(ctx context.Context, tenantID string, actor *internal.CurrentUser, dto CreateDocumentDTO) (*documentDatamodel.PolicyDocument, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermDocumentsCreate) {
		s.logger.Warn("document create denied: insufficient permissions", "user_id", actor.UserID)
		return nil, internal.ErrUnauthorized
	}

	content, err := s.content.Generate(ctx, dto.ControlID, dto.Domain, dto.Description)
	if err != nil {
		return nil, internal.NewInternalError("content generation failed", err)
	}

	now := time.Now()
	status := FirstPendingStatus
	if dto.AsDraft {
		status = StatusDraft
	}

	doc := documentDatamodel.PolicyDocument{
		ID:          uuid.NewString(),
		ControlID:   dto.ControlID,
		Domain:      dto.Domain,
		Subdomain:   dto.Subdomain,
		Description: dto.Description,
		Status:      status,
		Content:     content,
		Version:     1,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}

		// Denormalized fields default to the assessment snapshot when
		// the caller did not provide them.
		if item := b.AssessmentByControl(dto.ControlID); item != nil {
			if doc.Domain == "" {
				doc.Domain = item.Domain
			}
			if doc.Subdomain == "" {
				doc.Subdomain = item.Subdomain
			}
			if doc.Description == "" {
				doc.Description = item.Description
			}
		}

		b.Documents = append(b.Documents, doc)
		audit.Record(b, actorUser, auditDatamodel.ActionDocumentCreated,
			fmt.Sprintf("policy document created for control %s", dto.ControlID), doc.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"tenant_id", tenantID,
		"document_id", doc.ID,
		"control_id", dto.ControlID,
		"status", doc.Status)

	if IsPending(doc.Status) {
		s.publishPending(ctx, tenantID, &doc)
	}
	return &doc, nil
}

// Submit moves a draft into the first pending stage.
func (s *Service) Submit(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser) (*documentDatamodel.PolicyDocument, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermDocumentsCreate) {
		return nil, internal.ErrUnauthorized
	}

	var updated documentDatamodel.PolicyDocument
	err := s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}
		doc := b.DocumentByID(docID)
		if doc == nil {
			return internal.ErrDocumentNotFound
		}
		if doc.Status != StatusDraft {
			return internal.NewValidationError("only draft documents can be submitted", internal.ErrCodeValidationFailed)
		}

		doc.Status = FirstPendingStatus
		doc.Version++
		doc.UpdatedAt = time.Now()
		audit.Record(b, actorUser, auditDatamodel.ActionDocumentSubmitted,
			fmt.Sprintf("document for control %s submitted for approval", doc.ControlID), doc.ID)
		updated = *doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPending(ctx, tenantID, &updated)
	return &updated, nil
}

// Decide applies one decision to a pending document. Preconditions, in
// order: version freshness, approve permission, and role ownership of
// the current stage. A stale version means a concurrent decision
// already won; the caller should re-fetch and reconsider.
func (s *Service) Decide(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser, dto DecisionDTO) (*documentDatamodel.PolicyDocument, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	perms := make([]rbac.Permission, 0, len(actor.Permissions))
	for _, p := range actor.Permissions {
		perms = append(perms, rbac.Permission(p))
	}

	return s.decide(ctx, tenantID, docID, decisionActor{
		userID:      actor.UserID,
		name:        actor.Name,
		role:        rbac.Role(actor.Role),
		permissions: perms,
	}, dto.Decision, dto.Comments, dto.Version)
}

func (s *Service) decide(ctx context.Context, tenantID, docID string, actor decisionActor, decision, comments string, expectedVersion int64) (*documentDatamodel.PolicyDocument, error) {
	var updated documentDatamodel.PolicyDocument

	err := s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		doc := b.DocumentByID(docID)
		if doc == nil {
			return internal.ErrDocumentNotFound
		}

		// Version freshness comes first: a decider holding a stale
		// version reasoned about a document that no longer exists, so
		// no other precondition is worth evaluating against the new
		// state.
		if expectedVersion != 0 && expectedVersion != doc.Version {
			return internal.ErrStaleState
		}

		next, step, err := transition(doc, actor, decision, comments)
		if err != nil {
			return err
		}

		doc.Status = next
		doc.ApprovalHistory = append(doc.ApprovalHistory, step)
		doc.UpdatedAt = step.Timestamp
		doc.Version++

		action := auditDatamodel.ActionDocumentApproved
		if next == StatusRejected {
			action = auditDatamodel.ActionDocumentRejected
		}
		details := fmt.Sprintf("document for control %s: %s by %s", doc.ControlID, step.Decision, step.Role)

		if actor.automated {
			audit.RecordSystem(b, actor.name, action, details, doc.ID)
		} else {
			actorUser := b.UserByID(actor.userID)
			if actorUser == nil {
				return internal.ErrUserNotFound
			}
			audit.Record(b, actorUser, action, details, doc.ID)
		}

		updated = *doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document transition applied",
		"tenant_id", tenantID,
		"document_id", docID,
		"decision", decision,
		"status", updated.Status,
		"actor_role", string(actor.role))

	switch {
	case updated.Status == StatusApproved:
		s.publishResolved(ctx, tenantID, &updated, events.EventTypeDocumentApproved)
	case updated.Status == StatusRejected:
		s.publishResolved(ctx, tenantID, &updated, events.EventTypeDocumentRejected)
	default:
		s.publishPending(ctx, tenantID, &updated)
	}

	return &updated, nil
}

// transition is the pure decision rule: given a document and an acting
// decision source, it yields the next status and the approval step to
// append, or refuses. It never mutates its inputs.
func transition(doc *documentDatamodel.PolicyDocument, actor decisionActor, decision, comments string) (string, documentDatamodel.ApprovalStep, error) {
	var zero documentDatamodel.ApprovalStep

	st, pending := stageFor(doc.Status)
	if !pending {
		if IsTerminal(doc.Status) {
			return "", zero, internal.ErrTerminalStatus
		}
		return "", zero, internal.NewValidationError("document is not awaiting approval", internal.ErrCodeValidationFailed)
	}

	if !rbac.HasPermission(actor.permissions, rbac.PermDocumentsApprove) {
		return "", zero, internal.ErrUnauthorized
	}
	// The stage's owning role must decide; the automated agent is
	// accepted at every stage as an alternative decision source.
	if actor.role != st.Role && actor.role != rbac.RoleAuditAgent {
		return "", zero, internal.ErrUnauthorized
	}

	step := documentDatamodel.ApprovalStep{
		Role:        string(actor.role),
		Decision:    decision,
		Timestamp:   time.Now(),
		Comments:    comments,
		SignedBy:    actor.name,
		SignatureID: actor.signatureID,
	}

	switch decision {
	case DecisionApproved, DecisionPassed:
		return st.Next, step, nil
	case DecisionRejected, DecisionFailed:
		return StatusRejected, step, nil
	default:
		return "", zero, internal.NewValidationError("unknown decision", internal.ErrCodeValidationFailed)
	}
}

func (s *Service) GetDocument(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser) (*documentDatamodel.PolicyDocument, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermDocumentsRead) {
		return nil, internal.ErrUnauthorized
	}
	var doc documentDatamodel.PolicyDocument
	err := s.store.View(ctx, tenantID, func(b *tenant.Bundle) error {
		d := b.DocumentByID(docID)
		if d == nil {
			return internal.ErrDocumentNotFound
		}
		doc = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns the tenant's documents newest first.
func (s *Service) ListDocuments(ctx context.Context, tenantID string, actor *internal.CurrentUser) ([]documentDatamodel.PolicyDocument, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermDocumentsRead) {
		return nil, internal.ErrUnauthorized
	}
	var docs []documentDatamodel.PolicyDocument
	err := s.store.View(ctx, tenantID, func(b *tenant.Bundle) error {
		docs = make([]documentDatamodel.PolicyDocument, len(b.Documents))
		copy(docs, b.Documents)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (s *Service) publishPending(ctx context.Context, tenantID string, doc *documentDatamodel.PolicyDocument) {
	role, ok := RequiredRole(doc.Status)
	if !ok {
		return
	}
	// Fire-and-forget: a slow or failed notification must never block
	// or fail a transition.
	_ = s.bus.Publish(ctx, events.NewDocumentPendingEvent(tenantID, doc.ID, doc.ControlID, string(role)))
}

func (s *Service) publishResolved(ctx context.Context, tenantID string, doc *documentDatamodel.PolicyDocument, eventType string) {
	_ = s.bus.Publish(ctx, events.NewDocumentResolvedEvent(eventType, tenantID, doc.ID, doc.ControlID, doc.Status, doc.CreatedBy))
}
