package license

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/core/common/validation"
	"github.com/frahmantamala/compliance-management/internal/transport"
	"github.com/frahmantamala/compliance-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

type RenewDTO struct {
	Key       string    `json:"key"`
	Tier      string    `json:"tier,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (d RenewDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("key", d.Key).Required()
	v.Field("expires_at", d.ExpiresAt).Required()
	return v.Error()
}

// Status reports the current license evaluation for the caller's
// tenant.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	eval, err := h.Service.Check(r.Context(), user.TenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, eval)
}

// Renew replaces the tenant license. Reachable even when the current
// license has lapsed, otherwise a tenant could never recover.
func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto RenewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	eval, err := h.Service.Renew(r.Context(), user.TenantID, user, RenewParams{
		Key:       dto.Key,
		Tier:      dto.Tier,
		ExpiresAt: dto.ExpiresAt,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, eval)
}
