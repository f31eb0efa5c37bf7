package auth

import (
	"github.com/frahmantamala/compliance-management/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	return validation.NewValidator().
		Require("email", d.Email).
		Require("password", d.Password).
		Error()
}

// VerifyMFADTO answers a pending login challenge with a one-time code.
type VerifyMFADTO struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

func (d VerifyMFADTO) Validate() error {
	return validation.NewValidator().
		Require("challenge_id", d.ChallengeID).
		Require("code", d.Code).
		Error()
}

// ConfirmMFADTO carries the first code proving the authenticator was
// provisioned after enrollment.
type ConfirmMFADTO struct {
	Code string `json:"code"`
}

func (d ConfirmMFADTO) Validate() error {
	return validation.NewValidator().
		Require("code", d.Code).
		Error()
}

// DisableMFADTO requires the current password before dropping the
// second factor.
type DisableMFADTO struct {
	Password string `json:"password"`
}

func (d DisableMFADTO) Validate() error {
	return validation.NewValidator().
		Require("password", d.Password).
		Error()
}

type RequestPasswordResetDTO struct {
	Email string `json:"email"`
}

func (d RequestPasswordResetDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	return v.Error()
}

type ResetPasswordDTO struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	return validation.NewValidator().
		Require("email", d.Email).
		Require("token", d.Token).
		Require("new_password", d.NewPassword).
		Error()
}
