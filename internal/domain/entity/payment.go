package entity

import "time"

// Payment settles an AccountsApproved expense. At most one exists per expense.
type Payment struct {
	ID              string        `json:"id"`
	ExpenseID       string        `json:"expense_id"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	ReferenceNumber string        `json:"reference_number"`
	PaymentDate     Date          `json:"payment_date"`
	CreatedBy       string        `json:"created_by"`
	CreatedAt       time.Time     `json:"created_at"`
}
