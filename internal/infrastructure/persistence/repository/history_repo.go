package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqldb.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a history row with the next sequence number for its expense.
// Callers hold the expense row lock, so MAX(seq)+1 cannot race.
func (r *HistoryRepository) Append(ctx context.Context, h *entity.ExpenseStatusHistory) error {
	var next int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM expense_status_history WHERE expense_id = ?`,
		h.ExpenseID).Scan(&next)
	if err != nil {
		r.logger.Error("Failed to read history sequence", zap.String("expense_id", h.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to read history sequence: %w", err)
	}

	var from sql.NullString
	if h.FromStatus != nil {
		from = sql.NullString{String: string(*h.FromStatus), Valid: true}
	}

	query := `
		INSERT INTO expense_status_history (
			id, expense_id, seq, from_status, to_status, comment, performed_by, performed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		h.ID,
		h.ExpenseID,
		next,
		from,
		string(h.ToStatus),
		nullString(h.Comment),
		h.PerformedBy,
		h.PerformedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append history", zap.String("expense_id", h.ExpenseID), zap.Error(err))
		return sqldb.TranslateError(err, "failed to append history")
	}

	h.Seq = next
	return nil
}

// ListByExpense returns the history of an expense in chronological order
func (r *HistoryRepository) ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseStatusHistory, error) {
	query := `
		SELECT id, expense_id, seq, from_status, to_status, comment, performed_by, performed_at
		FROM expense_status_history
		WHERE expense_id = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get history by expense", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ExpenseStatusHistory
	for rows.Next() {
		var record entity.ExpenseStatusHistory
		var from, comment sql.NullString
		var to string

		err := rows.Scan(
			&record.ID,
			&record.ExpenseID,
			&record.Seq,
			&from,
			&to,
			&comment,
			&record.PerformedBy,
			&record.PerformedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		record.ToStatus = workflow.ExpenseStatus(to)
		if from.Valid {
			s := workflow.ExpenseStatus(from.String)
			record.FromStatus = &s
		}
		if comment.Valid {
			c := comment.String
			record.Comment = &c
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
