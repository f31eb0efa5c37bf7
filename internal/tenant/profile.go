package tenant

import (
	"context"
	"time"

	"github.com/frahmantamala/compliance-management/internal"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
	"github.com/frahmantamala/compliance-management/internal/rbac"
)

// GetProfile returns the tenant's company record.
func (s *Store) GetProfile(ctx context.Context, actor *internal.CurrentUser) (*companyDatamodel.Company, error) {
	var out *companyDatamodel.Company
	err := s.View(ctx, actor.TenantID, func(b *Bundle) error {
		copied := b.Company
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile changes the company profile fields. License material is
// not touched here; it has its own operation.
func (s *Store) UpdateProfile(ctx context.Context, actor *internal.CurrentUser, dto UpdateProfileDTO) (*companyDatamodel.Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermTenantUpdate) {
		return nil, internal.ErrUnauthorized
	}

	var out *companyDatamodel.Company
	err := s.Update(ctx, actor.TenantID, func(b *Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}

		if dto.Name != nil {
			b.Company.Name = *dto.Name
		}
		if dto.Sector != nil {
			b.Company.Sector = *dto.Sector
		}
		if dto.ContactEmail != nil {
			b.Company.ContactEmail = *dto.ContactEmail
		}
		if dto.LogoURL != nil {
			b.Company.LogoURL = *dto.LogoURL
		}
		b.Company.UpdatedAt = time.Now()

		b.RecordAudit(actorUser, auditDatamodel.ActionProfileUpdated,
			"company profile updated", b.Company.ID)

		copied := b.Company
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
