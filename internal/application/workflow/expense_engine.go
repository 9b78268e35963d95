package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

// attempt is one transition being evaluated inside its transaction
type attempt struct {
	expense *entity.Expense
	from    domainwf.ExpenseStatus
	target  domainwf.ExpenseStatus
	actor   entity.Actor
	comment string

	// actingRole is recorded on the audit entry; an override acts as MANAGER
	actingRole entity.Role
	skipBudget bool
}

// precondition rejects an attempt; checks run in order and the first failure wins
type precondition func(ctx context.Context, a *attempt) error

type expenseEngine struct {
	repos     Repositories
	txManager port.TransactionManager
	gate      *LifecycleGate
	guard     *BudgetGuard
	engineConfig
}

// NewExpenseEngine creates the expense transition engine
func NewExpenseEngine(repos Repositories, txManager port.TransactionManager, opts ...EngineOption) ExpenseEngine {
	return &expenseEngine{
		repos:        repos,
		txManager:    txManager,
		gate:         NewLifecycleGate(repos.Productions),
		guard:        NewBudgetGuard(repos.Departments, repos.Expenses),
		engineConfig: newEngineConfig(opts),
	}
}

func (e *expenseEngine) IsEditable(expense *entity.Expense) bool {
	return expense != nil && expense.IsEditable()
}

func (e *expenseEngine) Transition(ctx context.Context, req TransitionRequest) (*entity.Expense, error) {
	var (
		updated *entity.Expense
		from    domainwf.ExpenseStatus
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		a, err := e.begin(txCtx, req.Actor, req.ExpenseID)
		if err != nil {
			return err
		}
		if !req.Target.IsValid() {
			return apperror.BadRequest("unknown expense status %q", req.Target)
		}
		from = a.from
		a.target = req.Target
		a.comment = strings.TrimSpace(req.Comment)
		a.actingRole = req.Actor.Role

		checks := []precondition{
			e.checkReachable,
			e.checkComment,
			e.checkRole,
			e.checkNotPayment,
			e.checkSubmission,
			e.checkBudget,
		}
		if err := e.evaluate(txCtx, a, checks); err != nil {
			return err
		}

		updated, err = e.apply(txCtx, a)
		return err
	})
	if err != nil {
		e.logRejected("Expense transition rejected", req.ExpenseID, req.Target, req.Actor, err)
		return nil, err
	}

	e.publish(ctx, event.NewEvent(event.TypeExpenseStatusChanged, updated.ProductionID, updated.ID, req.Actor.UserID,
		e.statusPayload(updated, from, req.Comment)))
	return updated, nil
}

func (e *expenseEngine) ProducerOverride(ctx context.Context, req OverrideRequest) (*entity.Expense, error) {
	var (
		updated *entity.Expense
		from    domainwf.ExpenseStatus
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		a, err := e.begin(txCtx, req.Actor, req.ExpenseID)
		if err != nil {
			return err
		}
		from = a.from
		a.target = domainwf.StatusManagerApproved
		a.actingRole = entity.RoleManager
		a.skipBudget = true

		checks := []precondition{
			e.checkReachable,
			func(_ context.Context, a *attempt) error {
				reason := strings.TrimSpace(req.Reason)
				if reason == "" {
					return apperror.BadRequest("override reason is required")
				}
				if len([]rune(reason)) < e.overrideMinLength {
					return apperror.BadRequest("override reason must be at least %d characters", e.overrideMinLength)
				}
				a.comment = reason
				return nil
			},
			func(_ context.Context, a *attempt) error {
				if !a.actor.Is(entity.RoleProducer) {
					return apperror.Forbidden("only a PRODUCER may override the budget (actor is %s)", a.actor.Role)
				}
				return nil
			},
		}
		if err := e.evaluate(txCtx, a, checks); err != nil {
			return err
		}

		err = e.repos.Audit.Record(txCtx, &entity.AuditLogEntry{
			ID:           uuid.NewString(),
			ProductionID: a.expense.ProductionID,
			EntityType:   entity.AuditEntityExpense,
			EntityID:     a.expense.ID,
			Action:       actionProducerOverride,
			Metadata: map[string]interface{}{
				"reason":        a.comment,
				"amount":        a.expense.Amount.StringFixed(2),
				"department_id": a.expense.DepartmentID,
			},
			PerformedBy: a.actor.UserID,
			PerformedAt: e.clock.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to record override audit: %w", err)
		}

		updated, err = e.apply(txCtx, a)
		return err
	})
	if err != nil {
		e.logRejected("Producer override rejected", req.ExpenseID, domainwf.StatusManagerApproved, req.Actor, err)
		return nil, err
	}

	payload := e.statusPayload(updated, from, req.Reason)
	payload[event.KeyReason] = strings.TrimSpace(req.Reason)
	e.publish(ctx, event.NewEvent(event.TypeBudgetOverride, updated.ProductionID, updated.ID, req.Actor.UserID, payload))
	return updated, nil
}

func (e *expenseEngine) MarkPaid(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	var result *PaymentResult
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		a, err := e.begin(txCtx, req.Actor, req.ExpenseID)
		if err != nil {
			return err
		}
		a.target = domainwf.StatusPaid
		a.actingRole = req.Actor.Role

		reference := strings.TrimSpace(req.ReferenceNumber)
		checks := []precondition{
			func(_ context.Context, a *attempt) error {
				if a.from != domainwf.StatusAccountsApproved {
					return apperror.Conflict("expense is %s; only AccountsApproved expenses can be marked paid", a.from)
				}
				return nil
			},
			e.checkRole,
			func(_ context.Context, a *attempt) error {
				if !req.Method.IsValid() {
					return apperror.BadRequest("payment method must be cash or bank, got %q", req.Method)
				}
				if reference == "" {
					return apperror.BadRequest("payment reference number is required")
				}
				if req.PaymentDate.IsZero() {
					return apperror.BadRequest("payment date is required")
				}
				if today := entity.NewDate(e.clock.Now()); req.PaymentDate.After(today) {
					return apperror.BadRequest("payment date %s is in the future", req.PaymentDate)
				}
				return nil
			},
		}
		if err := e.evaluate(txCtx, a, checks); err != nil {
			return err
		}

		payment := &entity.Payment{
			ID:              uuid.NewString(),
			ExpenseID:       a.expense.ID,
			PaymentMethod:   req.Method,
			ReferenceNumber: reference,
			PaymentDate:     req.PaymentDate,
			CreatedBy:       req.Actor.UserID,
			CreatedAt:       e.clock.Now().UTC(),
		}
		if err := e.repos.Payments.Create(txCtx, payment); err != nil {
			if isDuplicate(err) {
				return apperror.Conflict("expense %s already has a payment", a.expense.ID)
			}
			return fmt.Errorf("failed to record payment: %w", err)
		}

		expense, err := e.apply(txCtx, a)
		if err != nil {
			return err
		}
		result = &PaymentResult{Expense: expense, Payment: payment}
		return nil
	})
	if err != nil {
		e.logRejected("Payment rejected", req.ExpenseID, domainwf.StatusPaid, req.Actor, err)
		return nil, err
	}

	payload := e.statusPayload(result.Expense, domainwf.StatusAccountsApproved, "")
	payload[event.KeyPaymentID] = result.Payment.ID
	e.publish(ctx, event.NewEvent(event.TypePaymentRecorded, result.Expense.ProductionID, result.Expense.ID, req.Actor.UserID, payload))
	return result, nil
}

// begin runs the production gate and locks the expense row
func (e *expenseEngine) begin(ctx context.Context, actor entity.Actor, expenseID string) (*attempt, error) {
	if _, err := e.gate.AssertMutable(ctx, actor.ProductionID); err != nil {
		return nil, err
	}

	expense, err := e.repos.Expenses.GetByIDForUpdate(ctx, actor.ProductionID, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense: %w", err)
	}
	if expense == nil {
		return nil, apperror.NotFound("expense %s not found", expenseID)
	}

	return &attempt{expense: expense, from: expense.Status, actor: actor}, nil
}

func (e *expenseEngine) evaluate(ctx context.Context, a *attempt, checks []precondition) error {
	for _, check := range checks {
		if err := check(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (e *expenseEngine) checkReachable(_ context.Context, a *attempt) error {
	machine, err := domainwf.NewExpenseMachine(a.from)
	if err != nil {
		return fmt.Errorf("expense %s: %w", a.expense.ID, err)
	}
	if !machine.CanTransition(a.target) {
		return apperror.Conflict("cannot transition expense from %s to %s", a.from, a.target)
	}
	return nil
}

func (e *expenseEngine) checkComment(_ context.Context, a *attempt) error {
	if RequiresComment(a.target) && a.comment == "" {
		return apperror.BadRequest("a comment is required to move an expense to %s", a.target)
	}
	return nil
}

func (e *expenseEngine) checkRole(_ context.Context, a *attempt) error {
	role, ok := RequiredRole(a.target)
	if !ok || !a.actor.Is(role) {
		return apperror.Forbidden("role %s cannot move an expense to %s (requires %s)", a.actor.Role, a.target, role)
	}
	return nil
}

// checkNotPayment keeps Paid reachable only through MarkPaid, which records the payment
func (e *expenseEngine) checkNotPayment(_ context.Context, a *attempt) error {
	if a.target == domainwf.StatusPaid {
		return apperror.BadRequest("payment details are required; use mark-paid to settle an expense")
	}
	return nil
}

func (e *expenseEngine) checkSubmission(ctx context.Context, a *attempt) error {
	if a.target != domainwf.StatusSubmitted {
		return nil
	}

	count, err := e.repos.Receipts.CountByExpense(ctx, a.expense.ID)
	if err != nil {
		return fmt.Errorf("failed to count receipts: %w", err)
	}
	if count == 0 {
		return apperror.BadRequest("at least one receipt must be attached before submitting")
	}

	if !a.expense.IsOwnedBy(a.actor.UserID) {
		return apperror.Forbidden("only the submitter may submit this expense")
	}
	return nil
}

func (e *expenseEngine) checkBudget(ctx context.Context, a *attempt) error {
	if a.target != domainwf.StatusManagerApproved || a.skipBudget {
		return nil
	}

	over, err := e.guard.WouldExceedBudget(ctx, a.expense.ProductionID, a.expense.DepartmentID,
		a.expense.Amount, a.expense.ID, e.lockDepartment)
	if err != nil {
		return err
	}
	if over {
		return apperror.Conflict("over budget: producer override required")
	}
	return nil
}

// apply writes the status, the history row and the audit entry
func (e *expenseEngine) apply(ctx context.Context, a *attempt) (*entity.Expense, error) {
	now := e.clock.Now().UTC()

	if err := e.repos.Expenses.UpdateStatus(ctx, a.expense.ID, a.target, now); err != nil {
		return nil, fmt.Errorf("failed to update expense status: %w", err)
	}

	from := a.from
	history := &entity.ExpenseStatusHistory{
		ID:          uuid.NewString(),
		ExpenseID:   a.expense.ID,
		FromStatus:  &from,
		ToStatus:    a.target,
		PerformedBy: a.actor.UserID,
		PerformedAt: now,
	}
	if a.comment != "" {
		comment := a.comment
		history.Comment = &comment
	}
	if err := e.repos.History.Append(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", err)
	}

	metadata := map[string]interface{}{
		"from": a.from.String(),
		"to":   a.target.String(),
		"role": a.actingRole.String(),
	}
	if a.comment != "" {
		metadata["comment"] = a.comment
	}
	err := e.repos.Audit.Record(ctx, &entity.AuditLogEntry{
		ID:           uuid.NewString(),
		ProductionID: a.expense.ProductionID,
		EntityType:   entity.AuditEntityExpense,
		EntityID:     a.expense.ID,
		Action:       expenseAction(a.from, a.target),
		Metadata:     metadata,
		PerformedBy:  a.actor.UserID,
		PerformedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	updated := *a.expense
	updated.Status = a.target
	updated.UpdatedAt = now

	e.logger.Info("Expense transitioned",
		"expense_id", updated.ID,
		"from", a.from,
		"to", a.target,
		"performed_by", a.actor.UserID,
	)
	return &updated, nil
}

// statusPayload describes a committed transition of expense, which already carries the new status
func (e *expenseEngine) statusPayload(expense *entity.Expense, from domainwf.ExpenseStatus, comment string) map[string]interface{} {
	payload := map[string]interface{}{
		event.KeyExpenseID:    expense.ID,
		event.KeyDepartmentID: expense.DepartmentID,
		event.KeySubmittedBy:  expense.SubmittedBy,
		event.KeyFrom:         from.String(),
		event.KeyTo:           expense.Status.String(),
		event.KeyAmount:       expense.Amount.StringFixed(2),
	}
	if c := strings.TrimSpace(comment); c != "" {
		payload[event.KeyComment] = c
	}
	return payload
}

func (e *expenseEngine) publish(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

func (e *expenseEngine) logRejected(msg, expenseID string, target domainwf.ExpenseStatus, actor entity.Actor, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		e.logger.Error(msg, "expense_id", expenseID, "to", target, "performed_by", actor.UserID, "error", err)
		return
	}
	e.logger.Info(msg, "expense_id", expenseID, "to", target, "performed_by", actor.UserID, "kind", kind, "reason", err.Error())
}

func isDuplicate(err error) bool {
	return errors.Is(err, port.ErrDuplicate)
}
