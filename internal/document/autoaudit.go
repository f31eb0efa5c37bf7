package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/compliance-management/internal"
	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
	"github.com/frahmantamala/compliance-management/internal/ids"
	"github.com/frahmantamala/compliance-management/internal/rbac"
)

// AgentStage is one automated reviewer. Evaluate returns the pass
// verdict and the comment recorded on the approval step.
type AgentStage struct {
	Name     string
	Evaluate func(doc *documentDatamodel.PolicyDocument) (bool, string)
}

// defaultAgentStages are the three automated reviewers run in sequence.
// Each produces one decision through the same transition function the
// human chain uses; there is no separate automated state machine and no
// artificial pacing between stages.
var defaultAgentStages = []AgentStage{
	{
		Name: "completeness-agent",
		Evaluate: func(doc *documentDatamodel.PolicyDocument) (bool, string) {
			var missing []string
			if strings.TrimSpace(doc.Content.Policy) == "" {
				missing = append(missing, "policy")
			}
			if strings.TrimSpace(doc.Content.Procedure) == "" {
				missing = append(missing, "procedure")
			}
			if len(missing) > 0 {
				return false, "missing sections: " + strings.Join(missing, ", ")
			}
			return true, "all required sections present"
		},
	},
	{
		Name: "consistency-agent",
		Evaluate: func(doc *documentDatamodel.PolicyDocument) (bool, string) {
			if doc.ControlID == "" {
				return false, "document is not linked to a control"
			}
			if doc.Description == "" {
				return false, "control description snapshot is empty"
			}
			return true, fmt.Sprintf("content consistent with control %s", doc.ControlID)
		},
	},
	{
		Name: "compliance-agent",
		Evaluate: func(doc *documentDatamodel.PolicyDocument) (bool, string) {
			if strings.TrimSpace(doc.Content.Guideline) == "" {
				return false, "guideline section is empty"
			}
			return true, "document satisfies baseline compliance checks"
		},
	},
}

// RunAutomatedAudit feeds the agent sequence into the approval chain.
// Each stage issues one passed/failed decision; a failure terminates
// the document as rejected and stops the run. Stages that pass advance
// the chain exactly as a human approval would, so after a clean run the
// document sits at whatever stage the number of agents reached, awaiting
// the remaining human approvers.
func (s *Service) RunAutomatedAudit(ctx context.Context, tenantID, docID string, actor *internal.CurrentUser) ([]documentDatamodel.ApprovalStep, error) {
	if !rbac.HasPermissionString(actor.Permissions, rbac.PermDocumentsCreate) {
		s.logger.Warn("automated audit denied: insufficient permissions", "user_id", actor.UserID)
		return nil, internal.ErrUnauthorized
	}

	doc, err := s.GetDocument(ctx, tenantID, docID, actor)
	if err != nil {
		return nil, err
	}
	if !IsPending(doc.Status) {
		return nil, internal.NewValidationError("document is not awaiting approval", internal.ErrCodeValidationFailed)
	}

	var steps []documentDatamodel.ApprovalStep
	for _, agent := range defaultAgentStages {
		current, err := s.GetDocument(ctx, tenantID, docID, actor)
		if err != nil {
			return steps, err
		}
		if !IsPending(current.Status) {
			break
		}

		pass, comments := agent.Evaluate(current)
		decision := DecisionPassed
		if !pass {
			decision = DecisionFailed
		}

		agentActor := decisionActor{
			name:        agent.Name,
			role:        rbac.RoleAuditAgent,
			permissions: rbac.PermissionsFor(rbac.RoleAuditAgent),
			signatureID: "agent-" + ids.New(),
			automated:   true,
		}

		updated, err := s.decide(ctx, tenantID, docID, agentActor, decision, comments, 0)
		if err != nil {
			return steps, err
		}
		steps = append(steps, updated.ApprovalHistory[len(updated.ApprovalHistory)-1])

		if updated.Status == StatusRejected {
			break
		}
	}

	s.logger.Info("automated audit completed",
		"tenant_id", tenantID,
		"document_id", docID,
		"steps", len(steps))
	return steps, nil
}
