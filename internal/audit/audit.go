package audit

import (
	auditDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/audit"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/tenant"
)

// Record appends one entry to the tenant's audit log inside a bundle
// mutation. Callers invoke it from within Store.Update so the entry
// commits in the same transaction as the mutation it describes: a
// failed mutation writes nothing, a successful one always carries its
// entry. The append itself lives on Bundle so the tenant package can
// record its own mutations without depending on this one.
func Record(b *tenant.Bundle, actor *userDatamodel.User, action auditDatamodel.Action, details, targetID string) {
	b.RecordAudit(actor, action, details, targetID)
}

// RecordSystem is Record for actions with no human actor, such as the
// self-healing license correction or the automated audit agent.
func RecordSystem(b *tenant.Bundle, actorName string, action auditDatamodel.Action, details, targetID string) {
	b.RecordSystemAudit(actorName, action, details, targetID)
}
