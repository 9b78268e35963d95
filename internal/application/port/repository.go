package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/workflow"
)

// Lookups return (nil, nil) when the row does not exist.
// Methods named ...ForUpdate take an exclusive row lock held until the surrounding transaction ends.

// ProductionRepository defines persistence operations for Production
type ProductionRepository interface {
	Create(ctx context.Context, production *entity.Production) error
	GetByID(ctx context.Context, id string) (*entity.Production, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Production, error)
	UpdateStatus(ctx context.Context, id string, status workflow.ProductionStatus) error
}

// DepartmentRepository defines persistence operations for Department
type DepartmentRepository interface {
	Create(ctx context.Context, department *entity.Department) error
	GetByID(ctx context.Context, productionID, id string) (*entity.Department, error)
	GetByIDForUpdate(ctx context.Context, productionID, id string) (*entity.Department, error)
	ListByProduction(ctx context.Context, productionID string) ([]*entity.Department, error)
	Update(ctx context.Context, department *entity.Department) error
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, productionID, id string) (*entity.Expense, error)
	GetByIDForUpdate(ctx context.Context, productionID, id string) (*entity.Expense, error)
	List(ctx context.Context, productionID string, filter entity.ExpenseFilter) ([]*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	UpdateStatus(ctx context.Context, id string, status workflow.ExpenseStatus, updatedAt time.Time) error

	// SumCommitted totals AccountsApproved and Paid amounts in a department, skipping excludeID.
	SumCommitted(ctx context.Context, productionID, departmentID, excludeID string) (decimal.Decimal, error)

	// ExistsDuplicate reports another expense with the same department, amount and date
	// that is not ManagerRejected.
	ExistsDuplicate(ctx context.Context, productionID, departmentID string, amount decimal.Decimal, date entity.Date, excludeID string) (bool, error)
}

// ReceiptRepository defines persistence operations for ExpenseReceipt
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.ExpenseReceipt) error
	ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseReceipt, error)
	CountByExpense(ctx context.Context, expenseID string) (int, error)
}

// HistoryRepository defines persistence operations for ExpenseStatusHistory
type HistoryRepository interface {
	// Append assigns the next per-expense sequence number and inserts the row
	Append(ctx context.Context, history *entity.ExpenseStatusHistory) error
	ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseStatusHistory, error)
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	// Create returns ErrDuplicate when the expense already has a payment
	Create(ctx context.Context, payment *entity.Payment) error
	GetByExpenseID(ctx context.Context, expenseID string) (*entity.Payment, error)
}

// AuditSink accepts append-only audit entries
type AuditSink interface {
	Record(ctx context.Context, entry *entity.AuditLogEntry) error
}

// AuditRepository is the queryable store behind AuditSink
type AuditRepository interface {
	AuditSink
	ListByEntity(ctx context.Context, productionID, entityType, entityID string) ([]*entity.AuditLogEntry, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	ListForUser(ctx context.Context, productionID, userID string, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// UserRepository defines read access to the production directory
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListByProduction(ctx context.Context, productionID string) ([]*entity.User, error)
	ListByRole(ctx context.Context, productionID string, role entity.Role) ([]*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
