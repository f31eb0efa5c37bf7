package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/audit"
	assessmentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/assessment"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

type Service struct {
	store  *tenant.Store
	logger *slog.Logger
}

func NewService(store *tenant.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns the tenant's assessment items grouped the way they are
// stored, one item per control.
func (s *Service) List(ctx context.Context, actor *internal.CurrentUser) ([]assessmentDatamodel.Item, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermDocumentsRead) {
		return nil, internal.ErrUnauthorized
	}

	var out []assessmentDatamodel.Item
	err := s.store.View(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		out = append(out, b.Assessments...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus records the tenant's implementation state for a control.
func (s *Service) UpdateStatus(ctx context.Context, actor *internal.CurrentUser, controlID string, dto UpdateStatusDTO) (*assessmentDatamodel.Item, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermAssessmentUpdate) {
		return nil, internal.ErrUnauthorized
	}

	var out *assessmentDatamodel.Item
	err := s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}
		item := b.AssessmentByControl(controlID)
		if item == nil {
			return internal.NewNotFoundError("assessment control not found", internal.ErrCodeControlNotFound)
		}

		item.Status = assessmentDatamodel.Status(dto.Status)
		if dto.Notes != nil {
			item.Notes = *dto.Notes
		}
		item.UpdatedBy = actor.UserID
		item.UpdatedAt = time.Now()

		audit.Record(b, actorUser, auditDatamodel.ActionAssessmentUpdated,
			fmt.Sprintf("control %s marked %s", controlID, dto.Status), controlID)

		copied := *item
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
