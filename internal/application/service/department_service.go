package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/budget"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// CreateDepartmentInput holds the fields of a new department
type CreateDepartmentInput struct {
	Name            string
	AllocatedBudget decimal.Decimal
}

// UpdateDepartmentInput is a partial edit. Nil fields are left unchanged.
type UpdateDepartmentInput struct {
	Name            *string
	AllocatedBudget *decimal.Decimal
}

// DepartmentBudget is the committed utilization of one department
type DepartmentBudget struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	budget.Snapshot
}

// DepartmentService manages departments and their budgets
type DepartmentService interface {
	Create(ctx context.Context, actor entity.Actor, in CreateDepartmentInput) (*entity.Department, error)
	Update(ctx context.Context, actor entity.Actor, id string, in UpdateDepartmentInput) (*entity.Department, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Department, error)
	List(ctx context.Context, actor entity.Actor) ([]*entity.Department, error)
	GetBudget(ctx context.Context, actor entity.Actor, id string) (*DepartmentBudget, error)
}

type departmentServiceImpl struct {
	productions port.ProductionRepository
	departments port.DepartmentRepository
	audit       port.AuditSink
	guard       *workflow.BudgetGuard
	gate        *workflow.LifecycleGate
	txManager   port.TransactionManager
	clock       port.Clock
	logger      Logger
}

// NewDepartmentService creates a new DepartmentService
func NewDepartmentService(
	repos workflow.Repositories,
	txManager port.TransactionManager,
	clock port.Clock,
	logger Logger,
) DepartmentService {
	return &departmentServiceImpl{
		productions: repos.Productions,
		departments: repos.Departments,
		audit:       repos.Audit,
		guard:       workflow.NewBudgetGuard(repos.Departments, repos.Expenses),
		gate:        workflow.NewLifecycleGate(repos.Productions),
		txManager:   txManager,
		clock:       clock,
		logger:      loggerOrNop(logger),
	}
}

// Create adds a department to the actor's production
func (s *departmentServiceImpl) Create(ctx context.Context, actor entity.Actor, in CreateDepartmentInput) (*entity.Department, error) {
	if err := requireRole(actor, entity.RoleAdmin, "creating a department"); err != nil {
		return nil, err
	}
	name, err := utils.RequireText("name", utils.SanitizeString(in.Name))
	if err != nil {
		return nil, invalid(err)
	}
	if err := utils.ValidateBudget(in.AllocatedBudget); err != nil {
		return nil, invalid(err)
	}

	department := &entity.Department{
		ID:              newID(),
		ProductionID:    actor.ProductionID,
		Name:            name,
		AllocatedBudget: in.AllocatedBudget,
		CreatedAt:       s.clock.Now().UTC(),
	}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.gate.AssertMutable(txCtx, actor.ProductionID); err != nil {
			return err
		}
		if err := s.departments.Create(txCtx, department); err != nil {
			return fmt.Errorf("failed to create department: %w", err)
		}
		return s.record(txCtx, actor, department, "created")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Department created", "department_id", department.ID, "allocated", department.AllocatedBudget.String())
	return department, nil
}

// Update renames a department or changes its allocation
func (s *departmentServiceImpl) Update(ctx context.Context, actor entity.Actor, id string, in UpdateDepartmentInput) (*entity.Department, error) {
	if err := requireRole(actor, entity.RoleAdmin, "updating a department"); err != nil {
		return nil, err
	}
	if err := lookupID("department", id); err != nil {
		return nil, err
	}

	var updated *entity.Department
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.gate.AssertMutable(txCtx, actor.ProductionID); err != nil {
			return err
		}
		department, err := s.departments.GetByIDForUpdate(txCtx, actor.ProductionID, id)
		if err != nil {
			return fmt.Errorf("failed to lock department: %w", err)
		}
		if department == nil {
			return apperror.NotFound("department %s not found", id)
		}

		if in.Name != nil {
			name, err := utils.RequireText("name", utils.SanitizeString(*in.Name))
			if err != nil {
				return invalid(err)
			}
			department.Name = name
		}
		if in.AllocatedBudget != nil {
			if err := utils.ValidateBudget(*in.AllocatedBudget); err != nil {
				return invalid(err)
			}
			department.AllocatedBudget = *in.AllocatedBudget
		}

		if err := s.departments.Update(txCtx, department); err != nil {
			return fmt.Errorf("failed to update department: %w", err)
		}
		updated = department
		return s.record(txCtx, actor, department, "updated")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *departmentServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Department, error) {
	if err := lookupID("department", id); err != nil {
		return nil, err
	}
	department, err := s.departments.GetByID(ctx, actor.ProductionID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if department == nil {
		return nil, apperror.NotFound("department %s not found", id)
	}
	return department, nil
}

func (s *departmentServiceImpl) List(ctx context.Context, actor entity.Actor) ([]*entity.Department, error) {
	departments, err := s.departments.ListByProduction(ctx, actor.ProductionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}

// GetBudget reports committed spend against the allocation using the production's alert threshold
func (s *departmentServiceImpl) GetBudget(ctx context.Context, actor entity.Actor, id string) (*DepartmentBudget, error) {
	department, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	production, err := s.productions.GetByID(ctx, actor.ProductionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get production: %w", err)
	}
	if production == nil {
		return nil, apperror.NotFound("production %s not found", actor.ProductionID)
	}

	snapshot, err := s.guard.Snapshot(ctx, department, production.BudgetAlertThreshold)
	if err != nil {
		return nil, err
	}
	return &DepartmentBudget{
		DepartmentID:   department.ID,
		DepartmentName: department.Name,
		Snapshot:       snapshot,
	}, nil
}

func (s *departmentServiceImpl) record(ctx context.Context, actor entity.Actor, d *entity.Department, action string) error {
	err := s.audit.Record(ctx, &entity.AuditLogEntry{
		ID:           newID(),
		ProductionID: d.ProductionID,
		EntityType:   entity.AuditEntityDepartment,
		EntityID:     d.ID,
		Action:       action,
		Metadata: map[string]interface{}{
			"name":             d.Name,
			"allocated_budget": d.AllocatedBudget.StringFixed(2),
		},
		PerformedBy: actor.UserID,
		PerformedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record audit: %w", err)
	}
	return nil
}
