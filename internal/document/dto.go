package document

import (
	"github.com/frahmantamala/compliance-management/internal"
	"github.com/frahmantamala/compliance-management/internal/core/common/validation"
)

type CreateDocumentDTO struct {
	ControlID   string `json:"control_id"`
	Domain      string `json:"domain,omitempty"`
	Subdomain   string `json:"subdomain,omitempty"`
	Description string `json:"description,omitempty"`
	// AsDraft keeps the document out of the approval chain until an
	// explicit submit.
	AsDraft bool `json:"as_draft,omitempty"`
}

func (d CreateDocumentDTO) Validate() error {
	return validation.NewValidator().
		Require("control_id", d.ControlID).
		Error()
}

type DecisionDTO struct {
	Decision string `json:"decision"`
	Comments string `json:"comments,omitempty"`
	// Version is the document version the decider saw. A decision
	// against an advanced document gets a stale-state error.
	Version int64 `json:"version"`
}

func (d DecisionDTO) Validate() error {
	if d.Decision != DecisionApproved && d.Decision != DecisionRejected {
		return internal.NewValidationFieldError("decision", "decision must be approved or rejected", internal.ErrCodeValidationFailed)
	}
	if d.Version <= 0 {
		return internal.NewValidationFieldError("version", "version is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
