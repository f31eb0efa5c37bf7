package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/compliance-management/internal"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

// Service reads the per-tenant audit trail. Writes happen via Record
// inside other services' mutations; there is no standalone write path.
type Service struct {
	store  *tenant.Store
	logger *slog.Logger
}

func NewService(store *tenant.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns audit entries newest first.
func (s *Service) List(ctx context.Context, tenantID string, actor *internal.CurrentUser, limit, offset int) ([]auditDatamodel.Entry, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermAuditRead) {
		s.logger.Warn("audit read denied: insufficient permissions", "user_id", actor.UserID)
		return nil, internal.ErrUnauthorized
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entries []auditDatamodel.Entry
	err := s.store.View(ctx, tenantID, func(b *tenant.Bundle) error {
		// Stored in insertion order; read reverse-chronological.
		total := len(b.AuditLog)
		start := total - offset
		if start < 0 {
			start = 0
		}
		end := start - limit
		if end < 0 {
			end = 0
		}
		for i := start - 1; i >= end; i-- {
			entries = append(entries, b.AuditLog[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
