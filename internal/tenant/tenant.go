package tenant

import (
	"time"

	assessmentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/assessment"
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	companyDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/company"
	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/ids"
)

// Bundle is the whole per-tenant record: everything a tenant owns,
// read and replaced as a single unit. The store never does partial
// field updates, matching the whole-record semantics of the backing
// repository.
type Bundle struct {
	Company     companyDatamodel.Company        `json:"company"`
	Users       []userDatamodel.User            `json:"users"`
	Documents   []documentDatamodel.PolicyDocument `json:"documents"`
	AuditLog    []auditDatamodel.Entry          `json:"audit_log"`
	Assessments []assessmentDatamodel.Item      `json:"assessments"`

	// Version guards whole-bundle replacement: a replace with a stale
	// version is refused by the repository.
	Version int64 `json:"version"`
}

// UserByID returns a pointer into the bundle's user slice so mutation
// functions can edit in place. Nil when absent.
func (b *Bundle) UserByID(id string) *userDatamodel.User {
	for i := range b.Users {
		if b.Users[i].ID == id {
			return &b.Users[i]
		}
	}
	return nil
}

func (b *Bundle) UserByEmail(email string) *userDatamodel.User {
	for i := range b.Users {
		if b.Users[i].Email == email {
			return &b.Users[i]
		}
	}
	return nil
}

func (b *Bundle) DocumentByID(id string) *documentDatamodel.PolicyDocument {
	for i := range b.Documents {
		if b.Documents[i].ID == id {
			return &b.Documents[i]
		}
	}
	return nil
}

func (b *Bundle) AssessmentByControl(controlID string) *assessmentDatamodel.Item {
	for i := range b.Assessments {
		if b.Assessments[i].ControlID == controlID {
			return &b.Assessments[i]
		}
	}
	return nil
}

// UsersWithRole lists tenant users currently holding the role. Users
// whose access has expired no longer count as holding any role.
func (b *Bundle) UsersWithRole(role string, now time.Time) []userDatamodel.User {
	var out []userDatamodel.User
	for _, u := range b.Users {
		if u.Role == role && !u.AccessExpired(now) {
			out = append(out, u)
		}
	}
	return out
}

// ActiveUsers filters out accounts whose access has expired.
func (b *Bundle) ActiveUsers(now time.Time) []userDatamodel.User {
	var out []userDatamodel.User
	for _, u := range b.Users {
		if !u.AccessExpired(now) {
			out = append(out, u)
		}
	}
	return out
}

// RecordAudit appends an audit entry to the bundle's log. Called from
// within Store.Update so the entry commits in the same replace as the
// mutation it describes.
func (b *Bundle) RecordAudit(actor *userDatamodel.User, action auditDatamodel.Action, details, targetID string) {
	entry := auditDatamodel.Entry{
		ID:        ids.New(),
		Timestamp: time.Now(),
		Action:    action,
		Details:   details,
		TargetID:  targetID,
	}
	if actor != nil {
		entry.ActorID = actor.ID
		entry.ActorName = actor.Name
	}
	b.AuditLog = append(b.AuditLog, entry)
}

// RecordSystemAudit is RecordAudit for actions with no human actor,
// such as the license self-correction or the automated audit agent.
func (b *Bundle) RecordSystemAudit(actorName string, action auditDatamodel.Action, details, targetID string) {
	b.AuditLog = append(b.AuditLog, auditDatamodel.Entry{
		ID:        ids.New(),
		Timestamp: time.Now(),
		ActorName: actorName,
		Action:    action,
		Details:   details,
		TargetID:  targetID,
	})
}
