package port

import (
	"time"

	"github.com/garyjia/cineexpense/internal/domain/budget"
)

// BudgetReport is the utilization of every department in a production
type BudgetReport struct {
	ProductionID   string            `json:"production_id"`
	ProductionName string            `json:"production_name"`
	Currency       string            `json:"currency"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Rows           []BudgetReportRow `json:"rows"`
}

// BudgetReportRow is one department line of a BudgetReport
type BudgetReportRow struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	budget.Snapshot
}
