package assessment

import "time"

type Status string

const (
	StatusImplemented    Status = "implemented"
	StatusPartial        Status = "partially_implemented"
	StatusNotImplemented Status = "not_implemented"
)

// Item is one control of the assessment framework together with the
// tenant's recorded implementation state. The control text itself comes
// from a static reference catalog and is snapshotted here.
type Item struct {
	ControlID   string    `json:"control_id"`
	Domain      string    `json:"domain"`
	Subdomain   string    `json:"subdomain,omitempty"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
