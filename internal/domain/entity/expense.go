package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/domain/workflow"
)

// Expense is a spending claim moving through the approval pipeline
type Expense struct {
	ID           string                 `json:"id"`
	ProductionID string                 `json:"production_id"`
	DepartmentID string                 `json:"department_id"`
	SubmittedBy  string                 `json:"submitted_by"`
	Amount       decimal.Decimal        `json:"amount"`
	Currency     string                 `json:"currency"`
	ExpenseDate  Date                   `json:"expense_date"`
	Description  string                 `json:"description"`
	Status       workflow.ExpenseStatus `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// IsEditable returns true while the submitter may change fields and receipts
func (e *Expense) IsEditable() bool {
	return e.Status.IsEditable()
}

// IsOwnedBy reports whether userID submitted the expense
func (e *Expense) IsOwnedBy(userID string) bool {
	return e.SubmittedBy == userID
}

// ExpenseFilter narrows expense listings. Empty fields match everything.
type ExpenseFilter struct {
	Status       workflow.ExpenseStatus
	DepartmentID string
	SubmittedBy  string
}

// ExpenseReceipt is a blob reference attached to an expense
type ExpenseReceipt struct {
	ID          string    `json:"id"`
	ExpenseID   string    `json:"expense_id"`
	FilePath    string    `json:"file_path"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
