package tenant

import (
	"time"

	errors "github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/core/common/validation"
)

// SetupDTO is the public tenant signup payload: company profile,
// initial license, and the first administrator account.
type SetupDTO struct {
	CompanyName  string `json:"company_name"`
	Sector       string `json:"sector,omitempty"`
	ContactEmail string `json:"contact_email"`

	LicenseKey    string    `json:"license_key"`
	LicenseTier   string    `json:"license_tier,omitempty"`
	LicenseExpiry time.Time `json:"license_expiry"`

	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

func (d SetupDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("company_name", d.CompanyName).Required().MaxLength(200)
	v.Field("contact_email", d.ContactEmail).Required().Email()
	v.Field("license_key", d.LicenseKey).Required()
	v.Field("license_expiry", d.LicenseExpiry).Required()
	v.Field("admin_name", d.AdminName).Required().MaxLength(200)
	v.Field("admin_email", d.AdminEmail).Required().Email()
	v.Field("admin_password", d.AdminPassword).Required().MinLength(8)
	return v.Error()
}

type UpdateProfileDTO struct {
	Name         *string `json:"name,omitempty"`
	Sector       *string `json:"sector,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	LogoURL      *string `json:"logo_url,omitempty"`
}

func (d UpdateProfileDTO) Validate() error {
	if d.Name == nil && d.Sector == nil && d.ContactEmail == nil && d.LogoURL == nil {
		return errors.NewValidationError("no fields to update", errors.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(200)
	}
	if d.ContactEmail != nil {
		v.Field("contact_email", *d.ContactEmail).Required().Email()
	}
	return v.Error()
}
