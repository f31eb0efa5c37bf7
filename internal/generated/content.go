package generated

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	documentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/document"
)

// TemplateProvider renders the three document sections from static
// templates keyed by the control's metadata. It is deterministic so the
// same control always yields the same draft.
type TemplateProvider struct {
	policy    *template.Template
	procedure *template.Template
	guideline *template.Template
}

type templateInput struct {
	ControlID   string
	Domain      string
	Description string
}

const policyTemplate = `# Policy: {{.ControlID}}

## Purpose
This policy establishes the organization's commitment to {{.Description}}.

## Scope
This policy applies to all personnel, systems, and third parties operating
within the {{.Domain}} domain.

## Policy Statement
The organization shall implement and maintain controls satisfying {{.ControlID}}.
Deviations require documented approval through the exception process.
`

const procedureTemplate = `# Procedure: {{.ControlID}}

1. The control owner reviews the requirement: {{.Description}}.
2. Responsible staff implement the control within the {{.Domain}} domain.
3. Evidence of operation is collected and retained.
4. The control owner reviews effectiveness at least annually.
`

const guidelineTemplate = `# Guideline: {{.ControlID}}

Teams implementing this control should interpret "{{.Description}}" in the
context of their systems. Consult the {{.Domain}} domain owner when the
applicability of the control is unclear.
`

func NewTemplateProvider() *TemplateProvider {
	return &TemplateProvider{
		policy:    template.Must(template.New("policy").Parse(policyTemplate)),
		procedure: template.Must(template.New("procedure").Parse(procedureTemplate)),
		guideline: template.Must(template.New("guideline").Parse(guidelineTemplate)),
	}
}

func (p *TemplateProvider) Generate(_ context.Context, controlID, domain, description string) (documentDatamodel.GeneratedContent, error) {
	in := templateInput{
		ControlID:   controlID,
		Domain:      domain,
		Description: description,
	}
	if in.Domain == "" {
		in.Domain = "general security"
	}
	if in.Description == "" {
		in.Description = "meeting the requirements of control " + controlID
	}

	render := func(t *template.Template) (string, error) {
		var buf bytes.Buffer
		if err := t.Execute(&buf, in); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()) + "\n", nil
	}

	var content documentDatamodel.GeneratedContent
	var err error
	if content.Policy, err = render(p.policy); err != nil {
		return documentDatamodel.GeneratedContent{}, err
	}
	if content.Procedure, err = render(p.procedure); err != nil {
		return documentDatamodel.GeneratedContent{}, err
	}
	if content.Guideline, err = render(p.guideline); err != nil {
		return documentDatamodel.GeneratedContent{}, err
	}
	return content, nil
}
