package postgres

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/compliance-management/internal"
	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

// bundleRow is the single-table persistence shape: one serialized
// bundle per tenant, replaced wholesale. The version column backs the
// optimistic replace check.
type bundleRow struct {
	TenantID    string    `gorm:"column:tenant_id;primaryKey"`
	CompanyName string    `gorm:"column:company_name"`
	Version     int64     `gorm:"column:version;not null"`
	Data        []byte    `gorm:"column:data;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (bundleRow) TableName() string { return "tenant_bundles" }

// TenantRepository implements the tenant.Repository interface using GORM
type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) tenant.Repository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) LoadBundle(ctx context.Context, tenantID string) (*tenant.Bundle, error) {
	var row bundleRow
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrTenantNotFound
		}
		return nil, err
	}

	var b tenant.Bundle
	if err := json.Unmarshal(row.Data, &b); err != nil {
		return nil, internal.NewInternalError("corrupt tenant bundle", err)
	}
	return &b, nil
}

func (r *TenantRepository) ReplaceBundle(ctx context.Context, tenantID string, b *tenant.Bundle, fromVersion int64) error {
	data, err := json.Marshal(b)
	if err != nil {
		return internal.NewInternalError("failed to serialize tenant bundle", err)
	}

	res := r.db.WithContext(ctx).Model(&bundleRow{}).
		Where("tenant_id = ? AND version = ?", tenantID, fromVersion).
		Updates(map[string]interface{}{
			"company_name": b.Company.Name,
			"version":      b.Version,
			"data":         data,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the tenant vanished or another writer got there first.
		var count int64
		if err := r.db.WithContext(ctx).Model(&bundleRow{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return internal.ErrTenantNotFound
		}
		return internal.ErrStaleState
	}
	return nil
}

func (r *TenantRepository) CreateBundle(ctx context.Context, tenantID string, b *tenant.Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return internal.NewInternalError("failed to serialize tenant bundle", err)
	}
	row := bundleRow{
		TenantID:    tenantID,
		CompanyName: b.Company.Name,
		Version:     b.Version,
		Data:        data,
		UpdatedAt:   time.Now(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *TenantRepository) ListCompanies(ctx context.Context) ([]companyDatamodel.Company, error) {
	var rows []bundleRow
	if err := r.db.WithContext(ctx).Order("company_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]companyDatamodel.Company, 0, len(rows))
	for _, row := range rows {
		var b tenant.Bundle
		if err := json.Unmarshal(row.Data, &b); err != nil {
			return nil, internal.NewInternalError("corrupt tenant bundle", err)
		}
		out = append(out, b.Company)
	}
	return out, nil
}
