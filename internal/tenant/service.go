package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/compliance-management/internal"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/ids"
	"github.com/frahmantamala/compliance-management/internal/rbac"
)

// Repository is the durable store boundary: whole-record read and
// replace per tenant id, nothing finer grained.
type Repository interface {
	LoadBundle(ctx context.Context, tenantID string) (*Bundle, error)
	// ReplaceBundle persists the bundle as a unit. It must refuse the
	// write when the stored version no longer matches fromVersion.
	ReplaceBundle(ctx context.Context, tenantID string, b *Bundle, fromVersion int64) error
	CreateBundle(ctx context.Context, tenantID string, b *Bundle) error
	ListCompanies(ctx context.Context) ([]companyDatamodel.Company, error)
}

// Store partitions all mutable domain state by tenant and serializes
// mutations per tenant: two concurrent updates to the same tenant
// never interleave, so a mutation function always sees the latest
// committed bundle.
type Store struct {
	repo   Repository
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(repo Repository, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) tenantLock(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenantID] = l
	}
	return l
}

// View runs fn against a read-only snapshot of the tenant bundle.
// Mutations made by fn are discarded.
func (s *Store) View(ctx context.Context, tenantID string, fn func(b *Bundle) error) error {
	b, err := s.repo.LoadBundle(ctx, tenantID)
	if err != nil {
		return err
	}
	return fn(b)
}

// Update applies fn to the tenant bundle under the tenant lock and
// persists the result as a whole-record replace. If fn returns an
// error nothing is written: the mutation and its audit entry either
// both commit or neither does.
func (s *Store) Update(ctx context.Context, tenantID string, fn func(b *Bundle) error) error {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	b, err := s.repo.LoadBundle(ctx, tenantID)
	if err != nil {
		return err
	}

	fromVersion := b.Version
	if err := fn(b); err != nil {
		return err
	}

	b.Version = fromVersion + 1
	if err := s.repo.ReplaceBundle(ctx, tenantID, b, fromVersion); err != nil {
		s.logger.Error("bundle replace failed", "tenant_id", tenantID, "error", err)
		return err
	}
	return nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]companyDatamodel.Company, error) {
	return s.repo.ListCompanies(ctx)
}

// FindUserByEmail scans every tenant's user set. Login is
// tenant-agnostic: the tenant is discovered from whichever user
// matches.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (tenantID string, found *userDatamodel.User, err error) {
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return "", nil, err
	}
	for _, c := range companies {
		b, err := s.repo.LoadBundle(ctx, c.ID)
		if err != nil {
			return "", nil, err
		}
		if u := b.UserByEmail(email); u != nil {
			copied := *u
			return c.ID, &copied, nil
		}
	}
	return "", nil, internal.ErrUserNotFound
}

// SetupTenantParams carries everything tenant self-setup provides: the
// company profile, the initial license, and the first user. The first
// user is always an Administrator.
type SetupTenantParams struct {
	CompanyName   string
	Sector        string
	ContactEmail  string
	LicenseKey    string
	LicenseTier   string
	LicenseExpiry time.Time

	AdminName         string
	AdminEmail        string
	AdminPasswordHash string
}

func (s *Store) SetupTenant(ctx context.Context, params SetupTenantParams) (*Bundle, error) {
	// Emails are ideally unique across tenants, not only within one.
	if _, existing, err := s.FindUserByEmail(ctx, params.AdminEmail); err == nil && existing != nil {
		return nil, internal.ErrDuplicateEmail
	}

	now := time.Now()
	tenantID := uuid.NewString()

	admin := userDatamodel.User{
		ID:           uuid.NewString(),
		Name:         params.AdminName,
		Email:        params.AdminEmail,
		Role:         string(rbac.RoleAdministrator),
		PasswordHash: params.AdminPasswordHash,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	status := companyDatamodel.LicenseStatusActive
	if params.LicenseExpiry.Before(now) {
		status = companyDatamodel.LicenseStatusExpired
	}

	b := &Bundle{
		Company: companyDatamodel.Company{
			ID:           tenantID,
			Name:         params.CompanyName,
			Sector:       params.Sector,
			ContactEmail: params.ContactEmail,
			License: companyDatamodel.License{
				Key:       params.LicenseKey,
				Status:    status,
				Tier:      params.LicenseTier,
				ExpiresAt: params.LicenseExpiry,
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		Users: []userDatamodel.User{admin},
		AuditLog: []auditDatamodel.Entry{{
			ID:        ids.New(),
			Timestamp: now,
			ActorID:   admin.ID,
			ActorName: admin.Name,
			Action:    auditDatamodel.ActionTenantCreate,
			Details:   fmt.Sprintf("tenant %s created", params.CompanyName),
			TargetID:  tenantID,
		}},
		Version: 1,
	}

	if err := s.repo.CreateBundle(ctx, tenantID, b); err != nil {
		s.logger.Error("tenant setup failed", "company", params.CompanyName, "error", err)
		return nil, err
	}

	s.logger.Info("tenant created", "tenant_id", tenantID, "company", params.CompanyName)
	return b, nil
}
