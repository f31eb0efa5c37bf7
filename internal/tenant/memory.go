package tenant

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/frahmantamala/compliance-management/internal"
	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
)

// MemoryRepository keeps bundles in process memory. Used by tests and
// the seeder; it honors the same whole-record and version semantics as
// the database-backed repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	bundles map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bundles: make(map[string][]byte)}
}

func (r *MemoryRepository) LoadBundle(ctx context.Context, tenantID string) (*Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.bundles[tenantID]
	if !ok {
		return nil, internal.ErrTenantNotFound
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *MemoryRepository) ReplaceBundle(ctx context.Context, tenantID string, b *Bundle, fromVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.bundles[tenantID]
	if !ok {
		return internal.ErrTenantNotFound
	}
	var current Bundle
	if err := json.Unmarshal(raw, &current); err != nil {
		return err
	}
	if current.Version != fromVersion {
		return internal.ErrStaleState
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	r.bundles[tenantID] = data
	return nil
}

func (r *MemoryRepository) CreateBundle(ctx context.Context, tenantID string, b *Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bundles[tenantID]; exists {
		return internal.NewConflictError("tenant already exists", internal.ErrCodeTenantNotFound)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	r.bundles[tenantID] = data
	return nil
}

func (r *MemoryRepository) ListCompanies(ctx context.Context) ([]companyDatamodel.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]companyDatamodel.Company, 0, len(r.bundles))
	for _, raw := range r.bundles {
		var b Bundle
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		out = append(out, b.Company)
	}
	return out, nil
}
