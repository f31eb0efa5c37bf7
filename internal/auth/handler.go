package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/transport"
	"github.com/frahmantamala/compliance-management/pkg/logger"
)

// ServiceAPI is the surface the HTTP layer needs from the auth service.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	VerifyMFA(ctx context.Context, dto VerifyMFADTO) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Activity(sessionID string)
	ConfirmPresence(sessionID string) bool
	WarningOpen(sessionID string) bool
	ResolveSession(tokenString string) (*Session, error)
	CurrentUserForSession(ctx context.Context, sess *Session) (*internal.CurrentUser, error)
	EnrollMFA(ctx context.Context, actor *internal.CurrentUser) (secret string, otpauthURL string, err error)
	ConfirmMFA(ctx context.Context, actor *internal.CurrentUser, code string) error
	DisableMFA(ctx context.Context, actor *internal.CurrentUser, password string) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var dto VerifyMFADTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.VerifyMFA(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Service.Logout(r.Context(), user.SessionID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SessionStatus reports whether the idle warning is open for the
// caller's session so the client can surface the presence prompt.
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":   user.SessionID,
		"warning_open": h.Service.WarningOpen(user.SessionID),
	})
}

// ConfirmPresence answers the idle warning and restarts the countdown.
func (h *Handler) ConfirmPresence(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if !h.Service.ConfirmPresence(user.SessionID) {
		h.HandleServiceError(w, internal.ErrSessionExpired)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EnrollMFA(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	secret, url, err := h.Service.EnrollMFA(r.Context(), user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{
		"secret":      secret,
		"otpauth_url": url,
	})
}

func (h *Handler) ConfirmMFA(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var dto ConfirmMFADTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.ConfirmMFA(r.Context(), user, dto.Code); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DisableMFA(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var dto DisableMFADTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DisableMFA(r.Context(), user, dto.Password); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset always answers 202 so the endpoint cannot be
// used to probe which emails are registered.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var dto RequestPasswordResetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if _, err := h.Service.RequestPasswordReset(r.Context(), dto.Email); err != nil {
		h.Logger.Error("password reset request failed", "error", err)
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto.Email, dto.Token, dto.NewPassword); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware validates the bearer token, checks the session is
// still alive, counts the request as activity, and attaches the
// resolved principal to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		sess, err := h.Service.ResolveSession(token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		h.Service.Activity(sess.ID)

		user, err := h.Service.CurrentUserForSession(r.Context(), sess)
		if err != nil {
			h.Logger.Error("auth middleware: failed to resolve user", "session_id", sess.ID, "error", err)
			h.WriteError(w, http.StatusUnauthorized, "user not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(internal.ContextWithUser(r.Context(), user)))
	})
}
