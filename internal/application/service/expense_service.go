package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/application/dispatcher"
	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// CreateExpenseInput holds the fields of a new draft expense
type CreateExpenseInput struct {
	DepartmentID string
	Amount       decimal.Decimal
	Currency     string
	ExpenseDate  entity.Date
	Description  string
}

// CreateExpenseResult carries the new expense and the duplicate warning
type CreateExpenseResult struct {
	Expense           *entity.Expense `json:"expense"`
	PossibleDuplicate bool            `json:"possible_duplicate"`
}

// UpdateExpenseInput is a partial edit. Nil fields are left unchanged.
type UpdateExpenseInput struct {
	DepartmentID *string
	Amount       *decimal.Decimal
	ExpenseDate  *entity.Date
	Description  *string
}

// ReceiptUpload is one receipt file received from a driver
type ReceiptUpload struct {
	FileName    string
	ContentType string
	Content     []byte
}

// PaymentInput holds the payment details for MarkPaid
type PaymentInput struct {
	Method          entity.PaymentMethod
	ReferenceNumber string
	PaymentDate     entity.Date
}

// ExpenseService manages expenses on behalf of an authenticated actor
type ExpenseService interface {
	Create(ctx context.Context, actor entity.Actor, in CreateExpenseInput) (*CreateExpenseResult, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Expense, error)
	List(ctx context.Context, actor entity.Actor, filter entity.ExpenseFilter) ([]*entity.Expense, error)
	Update(ctx context.Context, actor entity.Actor, id string, in UpdateExpenseInput) (*entity.Expense, error)
	UploadReceipt(ctx context.Context, actor entity.Actor, id string, upload ReceiptUpload) (*entity.ExpenseReceipt, error)
	ListReceipts(ctx context.Context, actor entity.Actor, id string) ([]*entity.ExpenseReceipt, error)
	ListHistory(ctx context.Context, actor entity.Actor, id string) ([]*entity.ExpenseStatusHistory, error)
	GetPayment(ctx context.Context, actor entity.Actor, id string) (*entity.Payment, error)

	Transition(ctx context.Context, actor entity.Actor, id string, target domainwf.ExpenseStatus, comment string) (*entity.Expense, error)
	OverrideBudget(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Expense, error)
	MarkPaid(ctx context.Context, actor entity.Actor, id string, in PaymentInput) (*workflow.PaymentResult, error)
}

type expenseServiceImpl struct {
	repos      workflow.Repositories
	engine     workflow.ExpenseEngine
	gate       *workflow.LifecycleGate
	blobs      port.BlobStore
	txManager  port.TransactionManager
	clock      port.Clock
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewExpenseService creates a new ExpenseService. dispatcher may be nil.
func NewExpenseService(
	repos workflow.Repositories,
	engine workflow.ExpenseEngine,
	blobs port.BlobStore,
	txManager port.TransactionManager,
	clock port.Clock,
	d dispatcher.Dispatcher,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		repos:      repos,
		engine:     engine,
		gate:       workflow.NewLifecycleGate(repos.Productions),
		blobs:      blobs,
		txManager:  txManager,
		clock:      clock,
		dispatcher: d,
		logger:     loggerOrNop(logger),
	}
}

// Create validates and stores a Draft expense owned by the supervisor
func (s *expenseServiceImpl) Create(ctx context.Context, actor entity.Actor, in CreateExpenseInput) (*CreateExpenseResult, error) {
	if err := requireRole(actor, entity.RoleSupervisor, "creating an expense"); err != nil {
		return nil, err
	}
	if err := utils.ValidateID(in.DepartmentID); err != nil {
		return nil, invalid(err)
	}
	if err := utils.ValidateAmount(in.Amount); err != nil {
		return nil, invalid(err)
	}
	if err := s.validateExpenseDate(in.ExpenseDate); err != nil {
		return nil, err
	}
	description, err := utils.RequireText("description", utils.SanitizeString(in.Description))
	if err != nil {
		return nil, invalid(err)
	}

	var result *CreateExpenseResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		production, err := s.gate.AssertMutable(txCtx, actor.ProductionID)
		if err != nil {
			return err
		}
		if err := s.requireDepartment(txCtx, actor.ProductionID, in.DepartmentID); err != nil {
			return err
		}

		duplicate, err := s.repos.Expenses.ExistsDuplicate(txCtx, actor.ProductionID, in.DepartmentID, in.Amount, in.ExpenseDate, "")
		if err != nil {
			return fmt.Errorf("failed to check duplicates: %w", err)
		}

		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = production.BaseCurrency
		}

		now := s.clock.Now().UTC()
		expense := &entity.Expense{
			ID:           newID(),
			ProductionID: actor.ProductionID,
			DepartmentID: in.DepartmentID,
			SubmittedBy:  actor.UserID,
			Amount:       in.Amount,
			Currency:     currency,
			ExpenseDate:  in.ExpenseDate,
			Description:  description,
			Status:       domainwf.StatusDraft,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repos.Expenses.Create(txCtx, expense); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		// Creation is the first history row, with no from status
		if err := s.repos.History.Append(txCtx, &entity.ExpenseStatusHistory{
			ID:          newID(),
			ExpenseID:   expense.ID,
			ToStatus:    domainwf.StatusDraft,
			PerformedBy: actor.UserID,
			PerformedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		if err := s.repos.Audit.Record(txCtx, &entity.AuditLogEntry{
			ID:           newID(),
			ProductionID: actor.ProductionID,
			EntityType:   entity.AuditEntityExpense,
			EntityID:     expense.ID,
			Action:       "created",
			Metadata: map[string]interface{}{
				"department_id":      expense.DepartmentID,
				"amount":             expense.Amount.StringFixed(2),
				"possible_duplicate": duplicate,
			},
			PerformedBy: actor.UserID,
			PerformedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to record audit: %w", err)
		}

		result = &CreateExpenseResult{Expense: expense, PossibleDuplicate: duplicate}
		return nil
	})
	if err != nil {
		s.logger.Info("Expense creation rejected", "kind", apperror.KindOf(err), "error", err, "user_id", actor.UserID)
		return nil, err
	}

	s.logger.Info("Expense created",
		"expense_id", result.Expense.ID,
		"department_id", result.Expense.DepartmentID,
		"possible_duplicate", result.PossibleDuplicate,
	)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeExpenseCreated, actor.ProductionID, result.Expense.ID, actor.UserID,
			map[string]interface{}{
				event.KeyExpenseID:    result.Expense.ID,
				event.KeyDepartmentID: result.Expense.DepartmentID,
				event.KeySubmittedBy:  result.Expense.SubmittedBy,
				event.KeyAmount:       result.Expense.Amount.StringFixed(2),
			}))
	}
	return result, nil
}

// Get returns an expense of the actor's production
func (s *expenseServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Expense, error) {
	if err := lookupID("expense", id); err != nil {
		return nil, err
	}
	expense, err := s.repos.Expenses.GetByID(ctx, actor.ProductionID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if expense == nil {
		return nil, apperror.NotFound("expense %s not found", id)
	}
	return expense, nil
}

// List returns the production's expenses matching filter
func (s *expenseServiceImpl) List(ctx context.Context, actor entity.Actor, filter entity.ExpenseFilter) ([]*entity.Expense, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.BadRequest("unknown expense status %q", filter.Status)
	}
	if filter.DepartmentID != "" {
		if err := utils.ValidateID(filter.DepartmentID); err != nil {
			return nil, invalid(err)
		}
	}
	if filter.SubmittedBy != "" {
		if err := utils.ValidateID(filter.SubmittedBy); err != nil {
			return nil, invalid(err)
		}
	}

	expenses, err := s.repos.Expenses.List(ctx, actor.ProductionID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// Update applies a partial edit while the expense is editable by its owner
func (s *expenseServiceImpl) Update(ctx context.Context, actor entity.Actor, id string, in UpdateExpenseInput) (*entity.Expense, error) {
	if err := lookupID("expense", id); err != nil {
		return nil, err
	}

	var updated *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.lockEditable(txCtx, actor, id, "edit")
		if err != nil {
			return err
		}

		changed := make([]string, 0, 4)
		if in.DepartmentID != nil && *in.DepartmentID != expense.DepartmentID {
			if err := utils.ValidateID(*in.DepartmentID); err != nil {
				return invalid(err)
			}
			if err := s.requireDepartment(txCtx, actor.ProductionID, *in.DepartmentID); err != nil {
				return err
			}
			expense.DepartmentID = *in.DepartmentID
			changed = append(changed, "department_id")
		}
		if in.Amount != nil {
			if err := utils.ValidateAmount(*in.Amount); err != nil {
				return invalid(err)
			}
			expense.Amount = *in.Amount
			changed = append(changed, "amount")
		}
		if in.ExpenseDate != nil {
			if err := s.validateExpenseDate(*in.ExpenseDate); err != nil {
				return err
			}
			expense.ExpenseDate = *in.ExpenseDate
			changed = append(changed, "expense_date")
		}
		if in.Description != nil {
			description, err := utils.RequireText("description", utils.SanitizeString(*in.Description))
			if err != nil {
				return invalid(err)
			}
			expense.Description = description
			changed = append(changed, "description")
		}

		if len(changed) == 0 {
			updated = expense
			return nil
		}

		now := s.clock.Now().UTC()
		expense.UpdatedAt = now
		if err := s.repos.Expenses.Update(txCtx, expense); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		if err := s.repos.Audit.Record(txCtx, &entity.AuditLogEntry{
			ID:           newID(),
			ProductionID: actor.ProductionID,
			EntityType:   entity.AuditEntityExpense,
			EntityID:     expense.ID,
			Action:       "updated",
			Metadata:     map[string]interface{}{"fields": changed},
			PerformedBy:  actor.UserID,
			PerformedAt:  now,
		}); err != nil {
			return fmt.Errorf("failed to record audit: %w", err)
		}
		updated = expense
		return nil
	})
	if err != nil {
		s.logger.Info("Expense update rejected", "expense_id", id, "kind", apperror.KindOf(err), "error", err)
		return nil, err
	}
	return updated, nil
}

// UploadReceipt stores the file in the blob store and attaches it to the expense.
// The blob is removed again when the receipt row cannot be written.
func (s *expenseServiceImpl) UploadReceipt(ctx context.Context, actor entity.Actor, id string, upload ReceiptUpload) (*entity.ExpenseReceipt, error) {
	if len(upload.Content) == 0 {
		return nil, apperror.BadRequest("receipt file is empty")
	}
	fileName := utils.SanitizeFileName(upload.FileName)
	if fileName == "" {
		return nil, apperror.BadRequest("receipt file name is required")
	}

	expense, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkEditableBy(expense, actor, "upload receipts to"); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("receipts/%s/%s/%s%s", expense.ProductionID, expense.ID, newID(), strings.ToLower(filepath.Ext(fileName)))
	ref, err := s.blobs.Put(ctx, key, upload.Content, upload.ContentType)
	if err != nil {
		s.logger.Error("Failed to store receipt", "error", err, "expense_id", id)
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	receipt := &entity.ExpenseReceipt{
		ID:          newID(),
		ExpenseID:   expense.ID,
		FilePath:    ref,
		FileName:    fileName,
		ContentType: upload.ContentType,
		Size:        int64(len(upload.Content)),
		UploadedBy:  actor.UserID,
		UploadedAt:  s.clock.Now().UTC(),
	}
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Re-check under the row lock; the expense may have moved on since the read above
		if _, err := s.lockEditable(txCtx, actor, id, "upload receipts to"); err != nil {
			return err
		}
		if err := s.repos.Receipts.Create(txCtx, receipt); err != nil {
			return fmt.Errorf("failed to create receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, ref); delErr != nil {
			s.logger.Error("Failed to remove orphaned receipt blob", "error", delErr, "ref", ref)
		}
		s.logger.Info("Receipt upload rejected", "expense_id", id, "kind", apperror.KindOf(err), "error", err)
		return nil, err
	}

	s.logger.Info("Receipt uploaded", "expense_id", id, "receipt_id", receipt.ID, "size", receipt.Size)
	return receipt, nil
}

// ListReceipts returns the receipts attached to an expense
func (s *expenseServiceImpl) ListReceipts(ctx context.Context, actor entity.Actor, id string) ([]*entity.ExpenseReceipt, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	receipts, err := s.repos.Receipts.ListByExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

// ListHistory returns the status history in sequence order
func (s *expenseServiceImpl) ListHistory(ctx context.Context, actor entity.Actor, id string) ([]*entity.ExpenseStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	rows, err := s.repos.History.ListByExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return rows, nil
}

// GetPayment returns the payment of a paid expense
func (s *expenseServiceImpl) GetPayment(ctx context.Context, actor entity.Actor, id string) (*entity.Payment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	payment, err := s.repos.Payments.GetByExpenseID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, apperror.NotFound("expense %s has no payment", id)
	}
	return payment, nil
}

func (s *expenseServiceImpl) Transition(ctx context.Context, actor entity.Actor, id string, target domainwf.ExpenseStatus, comment string) (*entity.Expense, error) {
	if err := lookupID("expense", id); err != nil {
		return nil, err
	}
	return s.engine.Transition(ctx, workflow.TransitionRequest{
		ExpenseID: id,
		Target:    target,
		Actor:     actor,
		Comment:   comment,
	})
}

func (s *expenseServiceImpl) OverrideBudget(ctx context.Context, actor entity.Actor, id, reason string) (*entity.Expense, error) {
	if err := lookupID("expense", id); err != nil {
		return nil, err
	}
	return s.engine.ProducerOverride(ctx, workflow.OverrideRequest{
		ExpenseID: id,
		Reason:    reason,
		Actor:     actor,
	})
}

func (s *expenseServiceImpl) MarkPaid(ctx context.Context, actor entity.Actor, id string, in PaymentInput) (*workflow.PaymentResult, error) {
	if err := lookupID("expense", id); err != nil {
		return nil, err
	}
	return s.engine.MarkPaid(ctx, workflow.PaymentRequest{
		ExpenseID:       id,
		Method:          in.Method,
		ReferenceNumber: in.ReferenceNumber,
		PaymentDate:     in.PaymentDate,
		Actor:           actor,
	})
}

// lockEditable runs the production gate, locks the expense and checks ownership and editability
func (s *expenseServiceImpl) lockEditable(ctx context.Context, actor entity.Actor, id, action string) (*entity.Expense, error) {
	if _, err := s.gate.AssertMutable(ctx, actor.ProductionID); err != nil {
		return nil, err
	}
	expense, err := s.repos.Expenses.GetByIDForUpdate(ctx, actor.ProductionID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expense: %w", err)
	}
	if expense == nil {
		return nil, apperror.NotFound("expense %s not found", id)
	}
	if err := checkEditableBy(expense, actor, action); err != nil {
		return nil, err
	}
	return expense, nil
}

func checkEditableBy(expense *entity.Expense, actor entity.Actor, action string) error {
	if !expense.IsOwnedBy(actor.UserID) {
		return apperror.Forbidden("only the submitter can %s this expense", action)
	}
	if !expense.IsEditable() {
		return apperror.Conflict("expense is %s and can no longer be edited", expense.Status)
	}
	return nil
}

func (s *expenseServiceImpl) requireDepartment(ctx context.Context, productionID, departmentID string) error {
	department, err := s.repos.Departments.GetByID(ctx, productionID, departmentID)
	if err != nil {
		return fmt.Errorf("failed to load department: %w", err)
	}
	if department == nil {
		return apperror.BadRequest("department %s does not exist in this production", departmentID)
	}
	return nil
}

func (s *expenseServiceImpl) validateExpenseDate(date entity.Date) error {
	if date.IsZero() {
		return apperror.BadRequest("expense date is required")
	}
	if date.After(entity.NewDate(s.clock.Now())) {
		return apperror.BadRequest("expense date %s is in the future", date)
	}
	return nil
}
