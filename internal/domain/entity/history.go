package entity

import (
	"time"

	"github.com/garyjia/cineexpense/internal/domain/workflow"
)

// ExpenseStatusHistory is one append-only row per expense transition
type ExpenseStatusHistory struct {
	ID          string                  `json:"id"`
	ExpenseID   string                  `json:"expense_id"`
	Seq         int64                   `json:"seq"`
	FromStatus  *workflow.ExpenseStatus `json:"from_status"`
	ToStatus    workflow.ExpenseStatus  `json:"to_status"`
	Comment     *string                 `json:"comment,omitempty"`
	PerformedBy string                  `json:"performed_by"`
	PerformedAt time.Time               `json:"performed_at"`
}

// AuditLogEntry is a write-only record of a state-changing action
type AuditLogEntry struct {
	ID           string                 `json:"id"`
	ProductionID string                 `json:"production_id"`
	EntityType   string                 `json:"entity_type"`
	EntityID     string                 `json:"entity_id"`
	Action       string                 `json:"action"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	PerformedBy  string                 `json:"performed_by"`
	PerformedAt  time.Time              `json:"performed_at"`
}
