// Package workflow executes expense and production transitions under their
// preconditions, inside one transaction per command.
package workflow

import (
	"context"

	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

// TransitionRequest asks to move an expense to Target
type TransitionRequest struct {
	ExpenseID string
	Target    domainwf.ExpenseStatus
	Actor     entity.Actor
	Comment   string
}

// OverrideRequest asks a producer to force a budget-blocked approval
type OverrideRequest struct {
	ExpenseID string
	Reason    string
	Actor     entity.Actor
}

// PaymentRequest settles an AccountsApproved expense
type PaymentRequest struct {
	ExpenseID       string
	Method          entity.PaymentMethod
	ReferenceNumber string
	PaymentDate     entity.Date
	Actor           entity.Actor
}

// PaymentResult is the outcome of MarkPaid
type PaymentResult struct {
	Expense *entity.Expense `json:"expense"`
	Payment *entity.Payment `json:"payment"`
}

// ProductionStatusRequest asks to move a production to Target
type ProductionStatusRequest struct {
	Target domainwf.ProductionStatus
	Actor  entity.Actor
}

// ExpenseEngine drives the expense status machine
type ExpenseEngine interface {
	// Transition applies one edge of the expense table for the actor
	Transition(ctx context.Context, req TransitionRequest) (*entity.Expense, error)

	// ProducerOverride approves a Submitted expense without the budget gate
	ProducerOverride(ctx context.Context, req OverrideRequest) (*entity.Expense, error)

	// MarkPaid records the payment and moves the expense to Paid
	MarkPaid(ctx context.Context, req PaymentRequest) (*PaymentResult, error)

	// IsEditable reports whether the submitter may still change the expense
	IsEditable(expense *entity.Expense) bool
}

// ProductionEngine drives the production status machine
type ProductionEngine interface {
	SetStatus(ctx context.Context, req ProductionStatusRequest) (*entity.Production, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
