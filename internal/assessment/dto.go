package assessment

import (
	"github.com/frahmantamala/compliance-management/internal/core/common/validation"
	assessmentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/assessment"
)

type UpdateStatusDTO struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

func (d UpdateStatusDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required().OneOf(
		string(assessmentDatamodel.StatusImplemented),
		string(assessmentDatamodel.StatusPartial),
		string(assessmentDatamodel.StatusNotImplemented),
	)
	return v.Error()
}
