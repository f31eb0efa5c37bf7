package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDocumentPending  = "document.pending"
	EventTypeDocumentApproved = "document.approved"
	EventTypeDocumentRejected = "document.rejected"
)

// DocumentPendingEvent signals that a document now awaits a decision
// from holders of RequiredRole in the tenant.
type DocumentPendingEvent struct {
	BaseEvent
	TenantID     string `json:"tenant_id"`
	DocumentID   string `json:"document_id"`
	ControlID    string `json:"control_id"`
	RequiredRole string `json:"required_role"`
}

func NewDocumentPendingEvent(tenantID, documentID, controlID, requiredRole string) *DocumentPendingEvent {
	return &DocumentPendingEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDocumentPending,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"tenant_id":     tenantID,
				"document_id":   documentID,
				"control_id":    controlID,
				"required_role": requiredRole,
			},
		},
		TenantID:     tenantID,
		DocumentID:   documentID,
		ControlID:    controlID,
		RequiredRole: requiredRole,
	}
}

// DocumentResolvedEvent signals a terminal transition, approved or
// rejected.
type DocumentResolvedEvent struct {
	BaseEvent
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	ControlID  string `json:"control_id"`
	Status     string `json:"status"`
	CreatedBy  string `json:"created_by,omitempty"`
}

func NewDocumentResolvedEvent(eventType, tenantID, documentID, controlID, status, createdBy string) *DocumentResolvedEvent {
	return &DocumentResolvedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"tenant_id":   tenantID,
				"document_id": documentID,
				"control_id":  controlID,
				"status":      status,
			},
		},
		TenantID:   tenantID,
		DocumentID: documentID,
		ControlID:  controlID,
		Status:     status,
		CreatedBy:  createdBy,
	}
}
