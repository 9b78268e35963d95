package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
)

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqldb.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payment. The unique index on expense_id rejects a second payment.
func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (
			id, expense_id, payment_method, reference_number, payment_date, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ExpenseID,
		string(p.PaymentMethod),
		p.ReferenceNumber,
		p.PaymentDate.String(),
		p.CreatedBy,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", zap.String("expense_id", p.ExpenseID), zap.Error(err))
		return sqldb.TranslateError(err, "failed to create payment")
	}

	return nil
}

// GetByExpenseID retrieves the payment of an expense
func (r *PaymentRepository) GetByExpenseID(ctx context.Context, expenseID string) (*entity.Payment, error) {
	query := `
		SELECT id, expense_id, payment_method, reference_number, CAST(payment_date AS TEXT), created_by, created_at
		FROM payments
		WHERE expense_id = ?
	`

	var p entity.Payment
	var method, paymentDate string
	err := r.db.QueryRowContext(ctx, query, expenseID).Scan(
		&p.ID,
		&p.ExpenseID,
		&method,
		&p.ReferenceNumber,
		&paymentDate,
		&p.CreatedBy,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	p.PaymentMethod = entity.PaymentMethod(method)
	if p.PaymentDate, err = parseDate(paymentDate); err != nil {
		return nil, err
	}
	return &p, nil
}

// Verify interface compliance
var _ port.PaymentRepository = (*PaymentRepository)(nil)
