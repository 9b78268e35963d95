package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
)

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sqldb.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a receipt reference
func (r *ReceiptRepository) Create(ctx context.Context, rc *entity.ExpenseReceipt) error {
	query := `
		INSERT INTO expense_receipts (
			id, expense_id, file_path, file_name, content_type, size, uploaded_by, uploaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rc.ID,
		rc.ExpenseID,
		rc.FilePath,
		rc.FileName,
		rc.ContentType,
		rc.Size,
		rc.UploadedBy,
		rc.UploadedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create receipt",
			zap.String("expense_id", rc.ExpenseID),
			zap.Error(err))
		return sqldb.TranslateError(err, "failed to create receipt")
	}

	return nil
}

// ListByExpense returns receipts in upload order
func (r *ReceiptRepository) ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseReceipt, error) {
	query := `
		SELECT id, expense_id, file_path, file_name, content_type, size, uploaded_by, uploaded_at
		FROM expense_receipts
		WHERE expense_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list receipts", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*entity.ExpenseReceipt
	for rows.Next() {
		var rc entity.ExpenseReceipt
		err := rows.Scan(
			&rc.ID,
			&rc.ExpenseID,
			&rc.FilePath,
			&rc.FileName,
			&rc.ContentType,
			&rc.Size,
			&rc.UploadedBy,
			&rc.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, &rc)
	}

	return receipts, rows.Err()
}

// CountByExpense returns the number of receipts attached to an expense
func (r *ReceiptRepository) CountByExpense(ctx context.Context, expenseID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expense_receipts WHERE expense_id = ?`, expenseID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count receipts", zap.String("expense_id", expenseID), zap.Error(err))
		return 0, fmt.Errorf("failed to count receipts: %w", err)
	}
	return count, nil
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
