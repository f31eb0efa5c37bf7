package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/compliance-management/internal"
	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
	"github.com/frahmantamala/compliance-management/internal/transport"
	"github.com/frahmantamala/compliance-management/pkg/logger"
)

type ServiceAPI interface {
	CreateDocument(ctx context.Context, tenantID string, actor *internal.CurrentUser, dto CreateDocumentDTO) (*documentDatamodel.PolicyDocument, error)
	Submit(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser) (*documentDatamodel.PolicyDocument, error)
	Decide(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser, dto DecisionDTO) (*documentDatamodel.PolicyDocument, error)
	GetDocument(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser) (*documentDatamodel.PolicyDocument, error)
	ListDocuments(ctx context.Context, tenantID string, actor *internal.CurrentUser) ([]documentDatamodel.PolicyDocument, error)
	RunAutomatedAudit(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser) ([]documentDatamodel.ApprovalStep, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDocumentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateDocument: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.Service.CreateDocument(r.Context(), user.TenantID, user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	docs, err := h.Service.ListDocuments(r.Context(), user.TenantID, user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	doc, err := h.Service.GetDocument(r.Context(), user.TenantID, chi.URLParam(r, "id"), user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	doc, err := h.Service.Submit(r.Context(), user.TenantID, chi.URLParam(r, "id"), user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, DecisionApproved)
}

func (h *Handler) RejectDocument(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, DecisionRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decision string) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("decide: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dto.Decision = decision

	docID := chi.URLParam(r, "id")
	doc, err := h.Service.Decide(r.Context(), user.TenantID, docID, user, dto)
	if err != nil {
		h.Logger.Warn("decide: transition refused",
			"error", err,
			"document_id", docID,
			"user_id", user.UserID,
			"decision", decision)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("decide: transition applied",
		"document_id", docID,
		"user_id", user.UserID,
		"decision", decision,
		"status", doc.Status)

	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) RunAutomatedAudit(w http.ResponseWriter, r *http.Request) {
	user, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	steps, err := h.Service.RunAutomatedAudit(r.Context(), user.TenantID, chi.URLParam(r, "id"), user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"steps": steps})
}
