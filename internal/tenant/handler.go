package tenant

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/transport"
	"github.com/frahmantamala/compliance-management/pkg/logger"
)

// PasswordHasher hashes the first administrator's password during
// tenant setup.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Store  *Store
	Hasher PasswordHasher
}

func NewHandler(store *Store, hasher PasswordHasher) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Store:       store,
		Hasher:      hasher,
	}
}

// Setup is the unauthenticated tenant signup endpoint.
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	var dto SetupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	hash, err := h.Hasher.HashPassword(dto.AdminPassword)
	if err != nil {
		h.HandleServiceError(w, internal.NewInternalError("failed to hash password", err))
		return
	}

	b, err := h.Store.SetupTenant(r.Context(), SetupTenantParams{
		CompanyName:       dto.CompanyName,
		Sector:            dto.Sector,
		ContactEmail:      dto.ContactEmail,
		LicenseKey:        dto.LicenseKey,
		LicenseTier:       dto.LicenseTier,
		LicenseExpiry:     dto.LicenseExpiry,
		AdminName:         dto.AdminName,
		AdminEmail:        dto.AdminEmail,
		AdminPasswordHash: hash,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"tenant_id": b.Company.ID,
		"company":   b.Company,
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	company, err := h.Store.GetProfile(r.Context(), user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, company)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	company, err := h.Store.UpdateProfile(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, company)
}
