package auth_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/auth"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

var _ = Describe("Service", func() {
	const password = "correct-horse-battery"

	var (
		ctx      context.Context
		store    *tenant.Store
		svc      *auth.Service
		tenantID string
		adminID  string
	)

	lastAuditAction := func() auditDatamodel.Action {
		var action auditDatamodel.Action
		err := store.View(ctx, tenantID, func(b *tenant.Bundle) error {
			action = b.AuditLog[len(b.AuditLog)-1].Action
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return action
	}

	login := func(email, pass string) (*auth.LoginResult, error) {
		return svc.Login(ctx, auth.LoginDTO{Email: email, Password: pass})
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store = tenant.NewStore(tenant.NewMemoryRepository(), logger)

		sessions := auth.NewSessionManager(auth.SessionConfig{
			IdleTimeout:   time.Minute,
			WarningWindow: time.Minute,
		}, logger)
		tokens := auth.NewJWTTokenGenerator("test-secret", time.Hour)
		svc = auth.NewService(store, sessions, tokens, bcrypt.MinCost, time.Hour, logger)

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		b, err := store.SetupTenant(ctx, tenant.SetupTenantParams{
			CompanyName:       "Acme Corp",
			ContactEmail:      "security@acme.example",
			LicenseKey:        "LIC-1",
			LicenseExpiry:     time.Now().Add(24 * time.Hour),
			AdminName:         "Ada Admin",
			AdminEmail:        "admin@acme.example",
			AdminPasswordHash: string(hash),
		})
		Expect(err).NotTo(HaveOccurred())
		tenantID = b.Company.ID
		adminID = b.Users[0].ID
	})

	Describe("Login", func() {
		It("establishes a session and records the login", func() {
			result, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MFARequired).To(BeFalse())
			Expect(result.AccessToken).NotTo(BeEmpty())
			Expect(result.SessionID).NotTo(BeEmpty())
			Expect(lastAuditAction()).To(Equal(auditDatamodel.ActionUserLogin))
		})

		It("returns the same error for unknown email and wrong password", func() {
			_, err := login("nobody@acme.example", password)
			Expect(err).To(Equal(internal.ErrInvalidCredentials))

			_, err = login("admin@acme.example", "wrong")
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("refuses an expired account even with valid credentials", func() {
			past := time.Now().Add(-time.Hour)
			err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.UserByID(adminID).AccessExpiresAt = &past
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = login("admin@acme.example", password)
			Expect(err).To(Equal(internal.ErrAccountExpired))
		})

		It("refuses an unverified account", func() {
			err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.UserByID(adminID).Verified = false
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = login("admin@acme.example", password)
			Expect(err).To(Equal(internal.ErrUnverified))
		})

		It("checks credentials before the expiry gate", func() {
			past := time.Now().Add(-time.Hour)
			err := store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.UserByID(adminID).AccessExpiresAt = &past
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = login("admin@acme.example", "wrong")
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})
	})

	Describe("MFA", func() {
		enable := func() string {
			key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "admin@acme.example"})
			Expect(err).NotTo(HaveOccurred())
			err = store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				u := b.UserByID(adminID)
				u.MFASecret = key.Secret()
				u.MFAEnabled = true
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			return key.Secret()
		}

		It("returns a challenge instead of a session when MFA is on", func() {
			enable()
			result, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MFARequired).To(BeTrue())
			Expect(result.ChallengeID).NotTo(BeEmpty())
			Expect(result.AccessToken).To(BeEmpty())
		})

		It("completes the login with a valid code", func() {
			secret := enable()
			challenge, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())

			code, err := totp.GenerateCode(secret, time.Now())
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.VerifyMFA(ctx, auth.VerifyMFADTO{
				ChallengeID: challenge.ChallengeID,
				Code:        code,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.AccessToken).NotTo(BeEmpty())
		})

		It("rejects a wrong code and an unknown challenge", func() {
			enable()
			challenge, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.VerifyMFA(ctx, auth.VerifyMFADTO{
				ChallengeID: challenge.ChallengeID,
				Code:        "000000",
			})
			Expect(err).To(Equal(internal.ErrInvalidMFACode))

			_, err = svc.VerifyMFA(ctx, auth.VerifyMFADTO{
				ChallengeID: "no-such-challenge",
				Code:        "123456",
			})
			Expect(err).To(Equal(internal.ErrInvalidMFACode))
		})

		It("burns the challenge after a successful verification", func() {
			secret := enable()
			challenge, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())

			code, err := totp.GenerateCode(secret, time.Now())
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.VerifyMFA(ctx, auth.VerifyMFADTO{ChallengeID: challenge.ChallengeID, Code: code})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.VerifyMFA(ctx, auth.VerifyMFADTO{ChallengeID: challenge.ChallengeID, Code: code})
			Expect(err).To(Equal(internal.ErrInvalidMFACode))
		})
	})

	Describe("sessions over HTTP tokens", func() {
		It("resolves a live session from its access token", func() {
			result, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())

			sess, err := svc.ResolveSession(result.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.ID).To(Equal(result.SessionID))
			Expect(sess.UserID).To(Equal(adminID))

			current, err := svc.CurrentUserForSession(ctx, sess)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Permissions).To(ContainElement("users:create"))
		})

		It("refuses a token whose session is gone", func() {
			result, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Logout(ctx, result.SessionID)).To(Succeed())

			_, err = svc.ResolveSession(result.AccessToken)
			Expect(err).To(Equal(internal.ErrSessionExpired))
		})

		It("refuses a garbage token", func() {
			_, err := svc.ResolveSession("not-a-token")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("downgrades permissions when access expires mid-session", func() {
			result, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())
			sess, err := svc.ResolveSession(result.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			past := time.Now().Add(-time.Minute)
			err = store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
				b.UserByID(adminID).AccessExpiresAt = &past
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			current, err := svc.CurrentUserForSession(ctx, sess)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Permissions).To(ConsistOf("documents:read"))
		})
	})

	Describe("Logout", func() {
		It("records the logout and tolerates a repeat", func() {
			result, err := login("admin@acme.example", password)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Logout(ctx, result.SessionID)).To(Succeed())
			Expect(lastAuditAction()).To(Equal(auditDatamodel.ActionUserLogout))

			// Second teardown finds nothing and writes nothing.
			Expect(svc.Logout(ctx, result.SessionID)).To(Succeed())
		})
	})

	Describe("password reset", func() {
		It("resets the password with a valid token exactly once", func() {
			token, err := svc.RequestPasswordReset(ctx, "admin@acme.example")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).NotTo(BeEmpty())

			err = svc.ResetPassword(ctx, "admin@acme.example", token, "new-password-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = login("admin@acme.example", password)
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
			_, err = login("admin@acme.example", "new-password-1")
			Expect(err).NotTo(HaveOccurred())

			err = svc.ResetPassword(ctx, "admin@acme.example", token, "another-password")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("does not reveal whether the email exists", func() {
			token, err := svc.RequestPasswordReset(ctx, "nobody@acme.example")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(BeEmpty())
		})

		It("rejects short replacement passwords", func() {
			token, err := svc.RequestPasswordReset(ctx, "admin@acme.example")
			Expect(err).NotTo(HaveOccurred())

			err = svc.ResetPassword(ctx, "admin@acme.example", token, "short")
			Expect(err).To(HaveOccurred())
		})
	})
})
