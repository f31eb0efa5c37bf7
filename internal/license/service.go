package license

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
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

// Check evaluates the tenant's license. The evaluation itself is pure;
// when it reveals a stored status that no longer matches reality (an
// active license whose expiry has passed) the correction is persisted
// as an explicit follow-up write rather than a hidden mutation inside
// the read path.
func (s *Service) Check(ctx context.Context, tenantID string) (Evaluation, error) {
	now := time.Now()

	var eval Evaluation
	err := s.store.View(ctx, tenantID, func(b *tenant.Bundle) error {
		eval = Evaluate(b.Company.License, now)
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}

	if eval.NeedsCorrection {
		if err := s.persistExpiry(ctx, tenantID); err != nil {
			// The evaluation already told the truth; a failed
			// correction write only delays the stored status catching
			// up on the next check.
			s.logger.Error("license status correction failed", "tenant_id", tenantID, "error", err)
		}
	}

	return eval, nil
}

// Licensed is the boolean view of Check used by the HTTP gate.
func (s *Service) Licensed(ctx context.Context, tenantID string) (bool, error) {
	eval, err := s.Check(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return eval.Licensed, nil
}

func (s *Service) persistExpiry(ctx context.Context, tenantID string) error {
	return s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		lic := &b.Company.License
		if lic.Status != companyDatamodel.LicenseStatusActive || lic.ExpiresAt.After(time.Now()) {
			// Another writer already corrected or renewed it.
			return nil
		}
		lic.Status = companyDatamodel.LicenseStatusExpired
		b.Company.UpdatedAt = time.Now()
		audit.RecordSystem(b, "system", auditDatamodel.ActionLicenseUpdated,
			"license marked expired (expiry passed)", tenantID)
		return nil
	})
}

type RenewParams struct {
	Key       string
	Tier      string
	ExpiresAt time.Time
}

// Renew replaces the tenant license. This is the one surface that stays
// reachable for an unlicensed tenant, and only for holders of the
// license update permission.
func (s *Service) Renew(ctx context.Context, tenantID string, actor *internal.CurrentUser, params RenewParams) (Evaluation, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermLicenseUpdate) {
		s.logger.Warn("license renew denied: insufficient permissions", "user_id", actor.UserID)
		return Evaluation{}, internal.ErrUnauthorized
	}
	if params.Key == "" {
		return Evaluation{}, internal.NewValidationError("license key is required", internal.ErrCodeValidationFailed)
	}
	if !params.ExpiresAt.After(time.Now()) {
		return Evaluation{}, internal.NewValidationError("license expiry must be in the future", internal.ErrCodeValidationFailed)
	}

	err := s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}

		b.Company.License = companyDatamodel.License{
			Key:       params.Key,
			Status:    companyDatamodel.LicenseStatusActive,
			Tier:      params.Tier,
			ExpiresAt: params.ExpiresAt,
		}
		b.Company.UpdatedAt = time.Now()

		audit.Record(b, actorUser, auditDatamodel.ActionLicenseUpdated,
			fmt.Sprintf("license renewed, tier %s, valid until %s", params.Tier, params.ExpiresAt.Format(time.RFC3339)),
			tenantID)
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}

	s.logger.Info("license renewed", "tenant_id", tenantID, "tier", params.Tier)
	return s.Check(ctx, tenantID)
}
