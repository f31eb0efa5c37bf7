package user

import "time"

// User is the persisted shape stored inside the tenant bundle. It is
// never serialized straight to HTTP responses; the user package maps it
// to response DTOs that omit the credential fields.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash"`
	Verified     bool   `json:"verified"`
	// AccessExpiresAt past means the account keeps existing but is
	// treated as minimal-capability and dropped from active listings.
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
	MFASecret       string     `json:"mfa_secret,omitempty"`
	MFAEnabled      bool       `json:"mfa_enabled"`
	ResetToken      string     `json:"reset_token,omitempty"`
	ResetTokenUntil *time.Time `json:"reset_token_until,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AccessExpired reports whether the account's time-bounded access has
// lapsed at the given instant.
func (u User) AccessExpired(now time.Time) bool {
	return u.AccessExpiresAt != nil && u.AccessExpiresAt.Before(now)
}
