package document

import "time"

// GeneratedContent is the payload produced by the content provider. The
// lifecycle engine treats it as opaque and only carries it along.
type GeneratedContent struct {
	Policy    string `json:"policy,omitempty"`
	Procedure string `json:"procedure,omitempty"`
	Guideline string `json:"guideline,omitempty"`
}

// ApprovalStep is one immutable record of a decision made at one stage
// of a document's approval chain.
type ApprovalStep struct {
	Role        string    `json:"role"`
	Decision    string    `json:"decision"`
	Timestamp   time.Time `json:"timestamp"`
	Comments    string    `json:"comments,omitempty"`
	SignedBy    string    `json:"signed_by,omitempty"`
	SignatureID string    `json:"signature_id,omitempty"`
}

type PolicyDocument struct {
	ID        string `json:"id"`
	ControlID string `json:"control_id"`
	// Domain, Subdomain and Description are snapshots taken at creation
	// time from the control, not live-linked to the assessment item.
	Domain      string `json:"domain,omitempty"`
	Subdomain   string `json:"subdomain,omitempty"`
	Description string `json:"description,omitempty"`

	Status  string           `json:"status"`
	Content GeneratedContent `json:"content"`

	// ApprovalHistory only ever grows; entries are immutable once
	// appended and their timestamps are non-decreasing.
	ApprovalHistory []ApprovalStep `json:"approval_history"`

	// Version increments on every transition; a decision carrying a
	// stale version loses the race and gets a stale-state error.
	Version   int64     `json:"version"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
