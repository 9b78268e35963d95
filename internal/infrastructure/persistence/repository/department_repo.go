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

// DepartmentRepository implements port.DepartmentRepository
type DepartmentRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sqldb.DB, logger *zap.Logger) port.DepartmentRepository {
	return &DepartmentRepository{
		db:     db,
		logger: logger,
	}
}

const departmentColumns = `id, production_id, name, CAST(allocated_budget AS TEXT), created_at`

// Create inserts a new department
func (r *DepartmentRepository) Create(ctx context.Context, d *entity.Department) error {
	query := `
		INSERT INTO departments (id, production_id, name, allocated_budget, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.ProductionID,
		d.Name,
		d.AllocatedBudget.StringFixed(2),
		d.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create department", zap.String("department_id", d.ID), zap.Error(err))
		return sqldb.TranslateError(err, "failed to create department")
	}

	return nil
}

// GetByID retrieves a department within a production
func (r *DepartmentRepository) GetByID(ctx context.Context, productionID, id string) (*entity.Department, error) {
	return r.get(ctx, productionID, id, "")
}

// GetByIDForUpdate retrieves and locks a department row
func (r *DepartmentRepository) GetByIDForUpdate(ctx context.Context, productionID, id string) (*entity.Department, error) {
	return r.get(ctx, productionID, id, r.db.ForUpdate())
}

func (r *DepartmentRepository) get(ctx context.Context, productionID, id, lock string) (*entity.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ? AND production_id = ?` + lock

	d, err := scanDepartment(r.db.QueryRowContext(ctx, query, id, productionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get department", zap.String("department_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return d, nil
}

// ListByProduction lists departments ordered by name
func (r *DepartmentRepository) ListByProduction(ctx context.Context, productionID string) ([]*entity.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE production_id = ? ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, productionID)
	if err != nil {
		r.logger.Error("Failed to list departments", zap.String("production_id", productionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*entity.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}

	return departments, rows.Err()
}

// Update persists name and allocated budget
func (r *DepartmentRepository) Update(ctx context.Context, d *entity.Department) error {
	query := `UPDATE departments SET name = ?, allocated_budget = ? WHERE id = ? AND production_id = ?`

	result, err := r.db.ExecContext(ctx, query, d.Name, d.AllocatedBudget.StringFixed(2), d.ID, d.ProductionID)
	if err != nil {
		r.logger.Error("Failed to update department", zap.String("department_id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to update department: %w", err)
	}

	return requireOneRow(result, "department", d.ID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDepartment(row rowScanner) (*entity.Department, error) {
	var d entity.Department
	if err := row.Scan(&d.ID, &d.ProductionID, &d.Name, &d.AllocatedBudget, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// Verify interface compliance
var _ port.DepartmentRepository = (*DepartmentRepository)(nil)
