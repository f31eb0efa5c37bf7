package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

// PasswordHasher abstracts credential hashing so the user service does
// not own the cost configuration.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Service struct {
	store  *tenant.Store
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(store *tenant.Store, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		logger: logger,
	}
}

// CreateUser adds a user to the actor's tenant. Emails are unique
// across all tenants because login discovers the tenant from the email.
func (s *Service) CreateUser(ctx context.Context, actor *internal.CurrentUser, dto CreateUserDTO) (*UserDTO, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermUsersCreate) {
		return nil, internal.ErrUnauthorized
	}

	if _, _, err := s.store.FindUserByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrDuplicateEmail
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	u := userDatamodel.User{
		ID:              uuid.NewString(),
		Name:            dto.Name,
		Email:           dto.Email,
		Role:            dto.Role,
		PasswordHash:    hash,
		Verified:        true,
		AccessExpiresAt: dto.AccessExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}
		if b.UserByEmail(dto.Email) != nil {
			return internal.ErrDuplicateEmail
		}
		b.Users = append(b.Users, u)
		audit.Record(b, actorUser, auditDatamodel.ActionUserCreated,
			fmt.Sprintf("user %s created with role %s", dto.Email, dto.Role), u.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", u.ID, "tenant_id", actor.TenantID, "role", dto.Role)
	out := toDTO(u, now)
	return &out, nil
}

// ListUsers returns the tenant's users. By default expired accounts are
// filtered out; includeExpired widens the listing for administration.
func (s *Service) ListUsers(ctx context.Context, actor *internal.CurrentUser, includeExpired bool) ([]UserDTO, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermUsersRead) {
		return nil, internal.ErrUnauthorized
	}

	now := time.Now()
	var out []UserDTO
	err := s.store.View(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		for _, u := range b.Users {
			if !includeExpired && u.AccessExpired(now) {
				continue
			}
			out = append(out, toDTO(u, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, actor *internal.CurrentUser, userID string) (*UserDTO, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermUsersRead) {
		return nil, internal.ErrUnauthorized
	}

	var out *UserDTO
	err := s.store.View(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(userID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		dto := toDTO(*u, time.Now())
		out = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateUser(ctx context.Context, actor *internal.CurrentUser, userID string, dto UpdateUserDTO) (*UserDTO, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermUsersUpdate) {
		return nil, internal.ErrUnauthorized
	}

	var out *UserDTO
	err := s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}
		u := b.UserByID(userID)
		if u == nil {
			return internal.ErrUserNotFound
		}

		if dto.Name != nil {
			u.Name = *dto.Name
		}
		if dto.Role != nil {
			u.Role = *dto.Role
		}
		if dto.ClearAccessExpiry {
			u.AccessExpiresAt = nil
		} else if dto.AccessExpiresAt != nil {
			u.AccessExpiresAt = dto.AccessExpiresAt
		}
		u.UpdatedAt = time.Now()

		audit.Record(b, actorUser, auditDatamodel.ActionUserUpdated,
			fmt.Sprintf("user %s updated", u.Email), u.ID)

		d := toDTO(*u, u.UpdatedAt)
		out = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes an account. Self-deletion is refused so a tenant
// cannot lock itself out of administration.
func (s *Service) DeleteUser(ctx context.Context, actor *internal.CurrentUser, userID string) error {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermUsersDelete) {
		return internal.ErrUnauthorized
	}
	if userID == actor.UserID {
		return internal.NewValidationError("cannot delete your own account", internal.ErrCodeValidationFailed)
	}

	return s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		actorUser := b.UserByID(actor.UserID)
		if actorUser == nil {
			return internal.ErrUserNotFound
		}
		for i := range b.Users {
			if b.Users[i].ID == userID {
				removed := b.Users[i]
				b.Users = append(b.Users[:i], b.Users[i+1:]...)
				audit.Record(b, actorUser, auditDatamodel.ActionUserDeleted,
					fmt.Sprintf("user %s deleted", removed.Email), removed.ID)
				return nil
			}
		}
		return internal.ErrUserNotFound
	})
}

// ChangePassword lets any authenticated user rotate their own
// credential after proving the current one.
func (s *Service) ChangePassword(ctx context.Context, actor *internal.CurrentUser, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	return s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(actor.UserID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
			return internal.ErrInvalidCredentials
		}
		u.PasswordHash = hash
		u.UpdatedAt = time.Now()
		audit.Record(b, u, auditDatamodel.ActionPasswordChanged, "password changed", u.ID)
		return nil
	})
}
