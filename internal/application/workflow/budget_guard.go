package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/budget"
	"github.com/garyjia/cineexpense/internal/domain/entity"
)

// BudgetGuard compares committed department spend against the allocation.
// Committed means AccountsApproved or Paid.
type BudgetGuard struct {
	departments port.DepartmentRepository
	expenses    port.ExpenseRepository
}

// NewBudgetGuard creates a budget guard
func NewBudgetGuard(departments port.DepartmentRepository, expenses port.ExpenseRepository) *BudgetGuard {
	return &BudgetGuard{departments: departments, expenses: expenses}
}

// WouldExceedBudget reports whether committing candidate on top of the department's
// other committed expenses would pass the allocation. excludeID keeps an expense
// from being counted twice. With lock set the department row is locked first so
// concurrent approvals in the same department serialize on it.
func (g *BudgetGuard) WouldExceedBudget(ctx context.Context, productionID, departmentID string, candidate decimal.Decimal, excludeID string, lock bool) (bool, error) {
	department, err := g.department(ctx, productionID, departmentID, lock)
	if err != nil {
		return false, err
	}

	committed, err := g.expenses.SumCommitted(ctx, productionID, departmentID, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to sum committed expenses: %w", err)
	}

	return budget.IsOverBudget(committed.Add(candidate), department.AllocatedBudget), nil
}

// GetUtilization returns the department's committed utilization against threshold
func (g *BudgetGuard) GetUtilization(ctx context.Context, productionID, departmentID string, threshold decimal.Decimal) (budget.Snapshot, error) {
	department, err := g.department(ctx, productionID, departmentID, false)
	if err != nil {
		return budget.Snapshot{}, err
	}
	return g.Snapshot(ctx, department, threshold)
}

// Snapshot computes utilization for an already loaded department
func (g *BudgetGuard) Snapshot(ctx context.Context, department *entity.Department, threshold decimal.Decimal) (budget.Snapshot, error) {
	committed, err := g.expenses.SumCommitted(ctx, department.ProductionID, department.ID, "")
	if err != nil {
		return budget.Snapshot{}, fmt.Errorf("failed to sum committed expenses: %w", err)
	}
	return budget.NewSnapshot(committed, department.AllocatedBudget, threshold), nil
}

func (g *BudgetGuard) department(ctx context.Context, productionID, departmentID string, lock bool) (*entity.Department, error) {
	var (
		department *entity.Department
		err        error
	)
	if lock {
		department, err = g.departments.GetByIDForUpdate(ctx, productionID, departmentID)
	} else {
		department, err = g.departments.GetByID(ctx, productionID, departmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load department: %w", err)
	}
	if department == nil {
		return nil, apperror.NotFound("department %s not found", departmentID)
	}
	return department, nil
}
