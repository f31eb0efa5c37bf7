package document

import (
	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
	"github.com/frahmantamala/compliance-management/internal/rbac"
)

const (
	StatusDraft       = "draft"
	StatusPendingCISO = "pending_ciso_approval"
	StatusPendingCTO  = "pending_cto_approval"
	StatusPendingCIO  = "pending_cio_approval"
	StatusPendingCEO  = "pending_ceo_approval"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
)

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
	// Passed and Failed are the decisions the automated audit agents
	// record; they drive the same transitions as approve and reject.
	DecisionPassed = "passed"
	DecisionFailed = "failed"
)

// stage binds a pending status to the role that owns the decision at
// that point and to the status an approval advances into.
type stage struct {
	Status string
	Role   rbac.Role
	Next   string
}

// approvalChain is the fixed, linear approval sequence. It is data:
// the transition function walks it and nothing else defines ordering.
var approvalChain = []stage{
	{Status: StatusPendingCISO, Role: rbac.RoleCISO, Next: StatusPendingCTO},
	{Status: StatusPendingCTO, Role: rbac.RoleCTO, Next: StatusPendingCIO},
	{Status: StatusPendingCIO, Role: rbac.RoleCIO, Next: StatusPendingCEO},
	{Status: StatusPendingCEO, Role: rbac.RoleCEO, Next: StatusApproved},
}

// FirstPendingStatus is where a submitted document enters the chain.
const FirstPendingStatus = StatusPendingCISO

func stageFor(status string) (stage, bool) {
	for _, st := range approvalChain {
		if st.Status == status {
			return st, true
		}
	}
	return stage{}, false
}

// RequiredRole returns the role that owns the decision for a pending
// status, or false for non-pending statuses.
func RequiredRole(status string) (rbac.Role, bool) {
	st, ok := stageFor(status)
	if !ok {
		return "", false
	}
	return st.Role, true
}

func IsPending(status string) bool {
	_, ok := stageFor(status)
	return ok
}

func IsTerminal(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

// CanBeDecided reports whether the document accepts decisions at all.
func CanBeDecided(doc *documentDatamodel.PolicyDocument) bool {
	return IsPending(doc.Status)
}
