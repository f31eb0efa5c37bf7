package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

const mfaChallengeTTL = 5 * time.Minute

// mfaChallenge is the half-open login awaiting its second factor.
type mfaChallenge struct {
	userID    string
	tenantID  string
	expiresAt time.Time
}

type Service struct {
	store      *tenant.Store
	sessions   *SessionManager
	tokens     *JWTTokenGenerator
	bcryptCost int
	resetTTL   time.Duration
	logger     *slog.Logger

	challengeMu sync.Mutex
	challenges  map[string]mfaChallenge
}

func NewService(store *tenant.Store, sessions *SessionManager, tokens *JWTTokenGenerator, bcryptCost int, resetTTL time.Duration, logger *slog.Logger) *Service {
	s := &Service{
		store:      store,
		sessions:   sessions,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		resetTTL:   resetTTL,
		logger:     logger,
		challenges: make(map[string]mfaChallenge),
	}
	sessions.SetExpireHandler(s.onSessionExpired)
	return s
}

// LoginResult is either an established session (tokens set) or an MFA
// challenge the caller must answer first.
type LoginResult struct {
	MFARequired bool   `json:"mfa_required"`
	ChallengeID string `json:"challenge_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// Login authenticates tenant-agnostically: the tenant is discovered
// from whichever user's email matches. Gates run in a fixed order:
// credentials, then account expiry, then verification. A
// credential mismatch never reveals which part was wrong.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	tenantID, u, err := s.store.FindUserByEmail(ctx, dto.Email)
	if err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	if u.AccessExpired(time.Now()) {
		return nil, internal.ErrAccountExpired
	}

	if !u.Verified {
		return nil, internal.ErrUnverified
	}

	if u.MFAEnabled {
		challengeID := uuid.NewString()
		s.challengeMu.Lock()
		s.challenges[challengeID] = mfaChallenge{
			userID:    u.ID,
			tenantID:  tenantID,
			expiresAt: time.Now().Add(mfaChallengeTTL),
		}
		s.challengeMu.Unlock()
		s.logger.Info("login pending second factor", "user_id", u.ID, "tenant_id", tenantID)
		return &LoginResult{MFARequired: true, ChallengeID: challengeID}, nil
	}

	return s.establishSession(ctx, tenantID, u)
}

// VerifyMFA answers a login challenge with a time-based one-time code
// validated against the user's stored secret.
func (s *Service) VerifyMFA(ctx context.Context, dto VerifyMFADTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	s.challengeMu.Lock()
	ch, ok := s.challenges[dto.ChallengeID]
	if !ok || time.Now().After(ch.expiresAt) {
		delete(s.challenges, dto.ChallengeID)
		s.challengeMu.Unlock()
		return nil, internal.ErrInvalidMFACode
	}
	s.challengeMu.Unlock()

	var loggedIn *userDatamodel.User
	err := s.store.View(ctx, ch.tenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(ch.userID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		copied := *u
		loggedIn = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !totp.Validate(dto.Code, loggedIn.MFASecret) {
		return nil, internal.ErrInvalidMFACode
	}
	s.challengeMu.Lock()
	delete(s.challenges, dto.ChallengeID)
	s.challengeMu.Unlock()

	return s.establishSession(ctx, ch.tenantID, loggedIn)
}

func (s *Service) establishSession(ctx context.Context, tenantID string, u *userDatamodel.User) (*LoginResult, error) {
	sess := s.sessions.Create(u.ID, tenantID, u.Email, u.Name, u.Role)

	err := s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		actor := b.UserByID(u.ID)
		if actor == nil {
			return internal.ErrUserNotFound
		}
		audit.Record(b, actor, auditDatamodel.ActionUserLogin, fmt.Sprintf("%s logged in", u.Email), u.ID)
		return nil
	})
	if err != nil {
		s.sessions.Destroy(sess.ID)
		return nil, err
	}

	token, err := s.tokens.GenerateAccessToken(sess.ID, u.ID, u.Email)
	if err != nil {
		s.sessions.Destroy(sess.ID)
		return nil, internal.NewInternalError("failed to issue access token", err)
	}

	s.logger.Info("login succeeded", "user_id", u.ID, "tenant_id", tenantID)
	return &LoginResult{AccessToken: token, SessionID: sess.ID}, nil
}

// Logout ends a session. Safe against the idle-expiry racing it: only
// the teardown that actually removed the session writes the audit
// entry.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sess, existed := s.sessions.Destroy(sessionID)
	if !existed {
		return nil
	}
	return s.recordLogout(ctx, sess, "logged out")
}

func (s *Service) onSessionExpired(sess Session) {
	// Timer callback: no request context exists here.
	if err := s.recordLogout(context.Background(), sess, "logged out after idle timeout"); err != nil {
		s.logger.Error("failed to record forced logout", "session_id", sess.ID, "error", err)
	}
}

func (s *Service) recordLogout(ctx context.Context, sess Session, details string) error {
	return s.store.Update(ctx, sess.TenantID, func(b *tenant.Bundle) error {
		actor := b.UserByID(sess.UserID)
		if actor == nil {
			return internal.ErrUserNotFound
		}
		audit.Record(b, actor, auditDatamodel.ActionUserLogout, fmt.Sprintf("%s %s", sess.Email, details), sess.UserID)
		return nil
	})
}

// Activity propagates a tracked activity signal to the idle countdown.
func (s *Service) Activity(sessionID string) {
	s.sessions.Touch(sessionID)
}

// ConfirmPresence answers the idle warning prompt.
func (s *Service) ConfirmPresence(sessionID string) bool {
	return s.sessions.ConfirmPresence(sessionID)
}

// WarningOpen reports whether the idle warning is showing for a session.
func (s *Service) WarningOpen(sessionID string) bool {
	return s.sessions.WarningOpen(sessionID)
}

// ResolveSession validates an access token and returns the live
// session it names, or an error when either the token or the session
// has gone.
func (s *Service) ResolveSession(tokenString string) (*Session, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	sess, ok := s.sessions.Get(claims.SessionID)
	if !ok {
		return nil, internal.ErrSessionExpired
	}
	return sess, nil
}

// CurrentUserForSession loads the session's user and resolves the
// permissions it carries right now. Resolution happens per request so
// an access expiry or role change takes effect without re-login.
func (s *Service) CurrentUserForSession(ctx context.Context, sess *Session) (*internal.CurrentUser, error) {
	var current *internal.CurrentUser
	err := s.store.View(ctx, sess.TenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(sess.UserID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		current = &internal.CurrentUser{
			UserID:      u.ID,
			TenantID:    sess.TenantID,
			SessionID:   sess.ID,
			Name:        u.Name,
			Email:       u.Email,
			Role:        u.Role,
			Permissions: rbac.Strings(rbac.Resolve(u, time.Now())),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// ----------------- MFA lifecycle -----------------

// EnrollMFA generates a fresh shared secret. MFA stays disabled until
// the first valid code confirms the authenticator was provisioned.
func (s *Service) EnrollMFA(ctx context.Context, actor *internal.CurrentUser) (secret string, otpauthURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "compliance-management",
		AccountName: actor.Email,
	})
	if err != nil {
		return "", "", internal.NewInternalError("failed to generate MFA secret", err)
	}

	err = s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(actor.UserID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		u.MFASecret = key.Secret()
		u.MFAEnabled = false
		u.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ConfirmMFA enables MFA once the user proves possession of the
// enrolled secret.
func (s *Service) ConfirmMFA(ctx context.Context, actor *internal.CurrentUser, code string) error {
	return s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(actor.UserID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		if u.MFASecret == "" {
			return internal.NewValidationError("MFA enrollment has not been started", internal.ErrCodeValidationFailed)
		}
		if !totp.Validate(code, u.MFASecret) {
			return internal.ErrInvalidMFACode
		}
		u.MFAEnabled = true
		u.UpdatedAt = time.Now()
		audit.Record(b, u, auditDatamodel.ActionMFAEnabled, "two-factor authentication enabled", u.ID)
		return nil
	})
}

// DisableMFA requires the current password again before dropping the
// second factor.
func (s *Service) DisableMFA(ctx context.Context, actor *internal.CurrentUser, password string) error {
	return s.store.Update(ctx, actor.TenantID, func(b *tenant.Bundle) error {
		u := b.UserByID(actor.UserID)
		if u == nil {
			return internal.ErrUserNotFound
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			return internal.ErrInvalidCredentials
		}
		u.MFAEnabled = false
		u.MFASecret = ""
		u.UpdatedAt = time.Now()
		audit.Record(b, u, auditDatamodel.ActionMFADisabled, "two-factor authentication disabled", u.ID)
		return nil
	})
}

// ----------------- password reset -----------------

// RequestPasswordReset issues an opaque reset token. The response never
// reveals whether the email exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	tenantID, u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", nil
	}

	token, err := GenerateRandomToken()
	if err != nil {
		return "", internal.NewInternalError("failed to generate reset token", err)
	}
	until := time.Now().Add(s.resetTTL)

	err = s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		user := b.UserByID(u.ID)
		if user == nil {
			return internal.ErrUserNotFound
		}
		user.ResetToken = token
		user.ResetTokenUntil = &until
		user.UpdatedAt = time.Now()
		audit.Record(b, user, auditDatamodel.ActionPasswordResetRequested, "password reset requested", user.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token. Single use: the token is
// cleared whether or not anything else about the user changed.
func (s *Service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if len(newPassword) < 8 {
		return internal.NewValidationError("password must be at least 8 characters", internal.ErrCodeWeakPassword)
	}

	tenantID, u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return internal.ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	return s.store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
		user := b.UserByID(u.ID)
		if user == nil {
			return internal.ErrUserNotFound
		}
		if user.ResetToken == "" || user.ResetToken != token {
			return internal.ErrInvalidToken
		}
		if user.ResetTokenUntil == nil || time.Now().After(*user.ResetTokenUntil) {
			return internal.ErrInvalidToken
		}
		user.PasswordHash = string(hash)
		user.ResetToken = ""
		user.ResetTokenUntil = nil
		user.UpdatedAt = time.Now()
		audit.Record(b, user, auditDatamodel.ActionPasswordReset, "password reset via token", user.ID)
		return nil
	})
}

// HashPassword creates a bcrypt hash of the password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ----------------- tokens -----------------

type Claims struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
	}
}

// GenerateAccessToken binds the HTTP surface to a session. Its expiry
// is a backstop; session liveness is checked on every request.
func (j *JWTTokenGenerator) GenerateAccessToken(sessionID, userID, email string) (string, error) {
	claims := &Claims{
		SessionID: sessionID,
		UserID:    userID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrSessionExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, internal.ErrInvalidToken
}

// GenerateRandomToken generates a cryptographically secure random token
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
