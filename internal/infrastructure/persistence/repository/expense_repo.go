package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqldb.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `id, production_id, department_id, submitted_by, CAST(amount AS TEXT), currency,
	CAST(expense_date AS TEXT), description, status, created_at, updated_at`

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, e *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			id, production_id, department_id, submitted_by, amount, currency,
			expense_date, description, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.ProductionID,
		e.DepartmentID,
		e.SubmittedBy,
		e.Amount.StringFixed(2),
		e.Currency,
		e.ExpenseDate.String(),
		e.Description,
		string(e.Status),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.String("expense_id", e.ID), zap.Error(err))
		return sqldb.TranslateError(err, "failed to create expense")
	}

	return nil
}

// GetByID retrieves an expense scoped to its production
func (r *ExpenseRepository) GetByID(ctx context.Context, productionID, id string) (*entity.Expense, error) {
	return r.get(ctx, productionID, id, "")
}

// GetByIDForUpdate retrieves and locks an expense row
func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, productionID, id string) (*entity.Expense, error) {
	return r.get(ctx, productionID, id, r.db.ForUpdate())
}

func (r *ExpenseRepository) get(ctx context.Context, productionID, id, lock string) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND production_id = ?` + lock

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id, productionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("expense_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// List returns a production's expenses, newest first
func (r *ExpenseRepository) List(ctx context.Context, productionID string, filter entity.ExpenseFilter) ([]*entity.Expense, error) {
	var where strings.Builder
	where.WriteString("production_id = ?")
	args := []interface{}{productionID}

	if filter.Status != "" {
		where.WriteString(" AND status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DepartmentID != "" {
		where.WriteString(" AND department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.SubmittedBy != "" {
		where.WriteString(" AND submitted_by = ?")
		args = append(args, filter.SubmittedBy)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where.String() +
		` ORDER BY created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.String("production_id", productionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// Update persists the editable fields of an expense
func (r *ExpenseRepository) Update(ctx context.Context, e *entity.Expense) error {
	query := `
		UPDATE expenses
		SET department_id = ?, amount = ?, currency = ?, expense_date = ?, description = ?, updated_at = ?
		WHERE id = ? AND production_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		e.DepartmentID,
		e.Amount.StringFixed(2),
		e.Currency,
		e.ExpenseDate.String(),
		e.Description,
		e.UpdatedAt,
		e.ID,
		e.ProductionID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.String("expense_id", e.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return requireOneRow(result, "expense", e.ID)
}

// UpdateStatus sets the workflow status of an expense
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id string, status workflow.ExpenseStatus, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt, id)
	if err != nil {
		r.logger.Error("Failed to update expense status",
			zap.String("expense_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update expense status: %w", err)
	}

	return requireOneRow(result, "expense", id)
}

// SumCommitted totals committed amounts in Go so both dialects keep exact decimals
func (r *ExpenseRepository) SumCommitted(ctx context.Context, productionID, departmentID, exclude string) (decimal.Decimal, error) {
	committed := workflow.CommittedExpenseStatuses()
	query := `
		SELECT CAST(amount AS TEXT) FROM expenses
		WHERE production_id = ? AND department_id = ? AND status IN (?, ?)
	`
	args := []interface{}{productionID, departmentID, string(committed[0]), string(committed[1])}
	query, args = excludeID(query, args, exclude)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to sum committed expenses",
			zap.String("department_id", departmentID),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to sum committed expenses: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		sum = sum.Add(amount)
	}

	return sum, rows.Err()
}

// ExistsDuplicate looks for a same-department, same-amount, same-date expense that was not rejected
func (r *ExpenseRepository) ExistsDuplicate(ctx context.Context, productionID, departmentID string, amount decimal.Decimal, date entity.Date, exclude string) (bool, error) {
	query := `
		SELECT CAST(amount AS TEXT) FROM expenses
		WHERE production_id = ? AND department_id = ? AND expense_date = ? AND status <> ?
	`
	args := []interface{}{productionID, departmentID, date.String(), string(workflow.StatusManagerRejected)}
	query, args = excludeID(query, args, exclude)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate expense: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var existing decimal.Decimal
		if err := rows.Scan(&existing); err != nil {
			return false, fmt.Errorf("failed to scan amount: %w", err)
		}
		if existing.Equal(amount) {
			return true, nil
		}
	}

	return false, rows.Err()
}

// excludeID appends an id filter only when one is given; an empty string is not a valid uuid in postgres
func excludeID(query string, args []interface{}, id string) (string, []interface{}) {
	if id == "" {
		return query, args
	}
	return query + " AND id <> ?", append(args, id)
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var e entity.Expense
	var status, expenseDate string

	err := row.Scan(
		&e.ID,
		&e.ProductionID,
		&e.DepartmentID,
		&e.SubmittedBy,
		&e.Amount,
		&e.Currency,
		&expenseDate,
		&e.Description,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.ExpenseDate, err = parseDate(expenseDate); err != nil {
		return nil, err
	}
	e.Status = workflow.ExpenseStatus(status)
	return &e, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
