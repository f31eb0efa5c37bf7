package audit

import "time"

type Action string

const (
	ActionUserLogin    Action = "USER_LOGIN"
	ActionUserLogout   Action = "USER_LOGOUT"
	ActionUserCreated  Action = "USER_CREATED"
	ActionUserUpdated  Action = "USER_UPDATED"
	ActionUserDeleted  Action = "USER_DELETED"
	ActionTenantCreate Action = "TENANT_CREATED"

	ActionDocumentCreated   Action = "DOCUMENT_CREATED"
	ActionDocumentSubmitted Action = "DOCUMENT_SUBMITTED"
	ActionDocumentApproved  Action = "DOCUMENT_APPROVED"
	ActionDocumentRejected  Action = "DOCUMENT_REJECTED"

	ActionProfileUpdated    Action = "PROFILE_UPDATED"
	ActionLicenseUpdated    Action = "LICENSE_UPDATED"
	ActionAssessmentUpdated Action = "ASSESSMENT_UPDATED"

	ActionPasswordChanged        Action = "PASSWORD_CHANGED"
	ActionPasswordResetRequested Action = "PASSWORD_RESET_REQUESTED"
	ActionPasswordReset          Action = "PASSWORD_RESET"
	ActionMFAEnabled             Action = "MFA_ENABLED"
	ActionMFADisabled            Action = "MFA_DISABLED"
)

// Entry is one immutable record of a state-changing action. Entries are
// append-only: never updated, never deleted.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Action    Action    `json:"action"`
	Details   string    `json:"details,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
}
