package user

import (
	"time"

	errors "github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/rbac"
)

type CreateUserDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
	// AccessExpiresAt bounds the account. Empty means no expiry.
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("email", d.Email).Required().Email()
	v.Field("role", d.Role).Required()
	v.Field("password", d.Password).Required().MinLength(8)
	if err := v.Error(); err != nil {
		return err
	}
	if !rbac.ValidRole(d.Role) {
		return errors.NewValidationFieldError("role", "role is not assignable", errors.ErrCodeValidationFailed)
	}
	return nil
}

type UpdateUserDTO struct {
	Name            *string    `json:"name,omitempty"`
	Role            *string    `json:"role,omitempty"`
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
	// ClearAccessExpiry removes an existing expiry bound.
	ClearAccessExpiry bool `json:"clear_access_expiry,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	if d.Name == nil && d.Role == nil && d.AccessExpiresAt == nil && !d.ClearAccessExpiry {
		return errors.NewValidationError("no fields to update", errors.ErrCodeValidationFailed)
	}
	if d.Name != nil {
		v := validation.NewValidator()
		v.Field("name", *d.Name).Required().MaxLength(200)
		if err := v.Error(); err != nil {
			return err
		}
	}
	if d.Role != nil && !rbac.ValidRole(*d.Role) {
		return errors.NewValidationFieldError("role", "role is not assignable", errors.ErrCodeValidationFailed)
	}
	return nil
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8)
	return v.Error()
}

// UserDTO is the response shape. Credential and MFA material never
// leaves the service layer.
type UserDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Verified        bool       `json:"verified"`
	MFAEnabled      bool       `json:"mfa_enabled"`
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
	AccessExpired   bool       `json:"access_expired"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toDTO(u userDatamodel.User, now time.Time) UserDTO {
	return UserDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Verified:        u.Verified,
		MFAEnabled:      u.MFAEnabled,
		AccessExpiresAt: u.AccessExpiresAt,
		AccessExpired:   u.AccessExpired(now),
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
