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

// ProductionRepository implements port.ProductionRepository
type ProductionRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewProductionRepository creates a new production repository
func NewProductionRepository(db *sqldb.DB, logger *zap.Logger) port.ProductionRepository {
	return &ProductionRepository{
		db:     db,
		logger: logger,
	}
}

const productionColumns = `id, name, status, base_currency, CAST(budget_alert_threshold AS TEXT),
	producer_override_enabled, created_at`

// Create inserts a new production
func (r *ProductionRepository) Create(ctx context.Context, p *entity.Production) error {
	query := `
		INSERT INTO productions (
			id, name, status, base_currency, budget_alert_threshold,
			producer_override_enabled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		string(p.Status),
		p.BaseCurrency,
		p.BudgetAlertThreshold.StringFixed(2),
		p.ProducerOverrideEnabled,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create production", zap.String("production_id", p.ID), zap.Error(err))
		return sqldb.TranslateError(err, "failed to create production")
	}

	return nil
}

// GetByID retrieves a production by ID
func (r *ProductionRepository) GetByID(ctx context.Context, id string) (*entity.Production, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate retrieves and locks a production row
func (r *ProductionRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Production, error) {
	return r.get(ctx, id, r.db.ForUpdate())
}

func (r *ProductionRepository) get(ctx context.Context, id, lock string) (*entity.Production, error) {
	query := `SELECT ` + productionColumns + ` FROM productions WHERE id = ?` + lock

	var p entity.Production
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&status,
		&p.BaseCurrency,
		&p.BudgetAlertThreshold,
		&p.ProducerOverrideEnabled,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get production", zap.String("production_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get production: %w", err)
	}

	p.Status = workflow.ProductionStatus(status)
	return &p, nil
}

// UpdateStatus sets the lifecycle status of a production
func (r *ProductionRepository) UpdateStatus(ctx context.Context, id string, status workflow.ProductionStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE productions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		r.logger.Error("Failed to update production status",
			zap.String("production_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update production status: %w", err)
	}

	return requireOneRow(result, "production", id)
}

// Verify interface compliance
var _ port.ProductionRepository = (*ProductionRepository)(nil)
