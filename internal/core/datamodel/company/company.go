package company

import "time"

type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusExpired  LicenseStatus = "expired"
	LicenseStatusInactive LicenseStatus = "inactive"
)

type License struct {
	Key       string        `json:"key"`
	Status    LicenseStatus `json:"status"`
	Tier      string        `json:"tier"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type Company struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Sector       string    `json:"sector,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	License      License   `json:"license"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
