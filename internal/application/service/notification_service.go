package service

import (
	"context"
	"fmt"

	"github.com/garyjia/cineexpense/internal/application/dispatcher"
	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

const defaultNotificationLimit = 50

// NotificationService turns domain events into in-app notifications
type NotificationService interface {
	// Register subscribes the notification handlers on d
	Register(d dispatcher.Dispatcher)

	HandleStatusChanged(ctx context.Context, evt *event.Event) error
	HandleBudgetOverride(ctx context.Context, evt *event.Event) error
	HandlePaymentRecorded(ctx context.Context, evt *event.Event) error

	List(ctx context.Context, actor entity.Actor) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, actor entity.Actor, id string) error
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	users         port.UserRepository
	productions   port.ProductionRepository
	guard         *workflow.BudgetGuard
	pusher        port.PushNotifier
	clock         port.Clock
	logger        Logger
}

// NewNotificationService creates a new NotificationService. pusher may be nil.
func NewNotificationService(
	notifications port.NotificationRepository,
	users port.UserRepository,
	repos workflow.Repositories,
	pusher port.PushNotifier,
	clock port.Clock,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		users:         users,
		productions:   repos.Productions,
		guard:         workflow.NewBudgetGuard(repos.Departments, repos.Expenses),
		pusher:        pusher,
		clock:         clock,
		logger:        loggerOrNop(logger),
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeExpenseStatusChanged, "notifications.status_changed", s.HandleStatusChanged)
	d.SubscribeNamed(event.TypeBudgetOverride, "notifications.budget_override", s.HandleBudgetOverride)
	d.SubscribeNamed(event.TypePaymentRecorded, "notifications.payment_recorded", s.HandlePaymentRecorded)
}

// HandleStatusChanged notifies the submitter of decisions made by others and
// fans out to the role that acts next.
func (s *notificationServiceImpl) HandleStatusChanged(ctx context.Context, evt *event.Event) error {
	to := domainwf.ExpenseStatus(evt.GetPayloadString(event.KeyTo))

	if err := s.notifySubmitter(ctx, evt, entity.NotificationStatusChanged); err != nil {
		return err
	}

	switch to {
	case domainwf.StatusSubmitted:
		return s.notifyRole(ctx, evt, entity.RoleManager, entity.NotificationStatusChanged, statusNotice(evt))
	case domainwf.StatusManagerApproved:
		return s.notifyRole(ctx, evt, entity.RoleAccounts, entity.NotificationStatusChanged, statusNotice(evt))
	case domainwf.StatusAccountsApproved:
		return s.checkThreshold(ctx, evt)
	}
	return nil
}

// HandleBudgetOverride tells the submitter about the override and hands the expense to accounts
func (s *notificationServiceImpl) HandleBudgetOverride(ctx context.Context, evt *event.Event) error {
	if err := s.notifySubmitter(ctx, evt, entity.NotificationBudgetOverride); err != nil {
		return err
	}
	return s.notifyRole(ctx, evt, entity.RoleAccounts, entity.NotificationStatusChanged, statusNotice(evt))
}

func (s *notificationServiceImpl) HandlePaymentRecorded(ctx context.Context, evt *event.Event) error {
	if err := s.notifySubmitter(ctx, evt, entity.NotificationStatusChanged); err != nil {
		return err
	}
	return s.checkThreshold(ctx, evt)
}

// List returns the actor's newest notifications first
func (s *notificationServiceImpl) List(ctx context.Context, actor entity.Actor) ([]*entity.Notification, error) {
	notifications, err := s.notifications.ListForUser(ctx, actor.ProductionID, actor.UserID, defaultNotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one of the actor's notifications as read.
// Notifications addressed to someone else are reported as missing.
func (s *notificationServiceImpl) MarkRead(ctx context.Context, actor entity.Actor, id string) error {
	if err := lookupID("notification", id); err != nil {
		return err
	}
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if n == nil || n.UserID != actor.UserID || n.ProductionID != actor.ProductionID {
		return apperror.NotFound("notification %s not found", id)
	}
	if n.IsRead {
		return nil
	}
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *notificationServiceImpl) notifySubmitter(ctx context.Context, evt *event.Event, notificationType string) error {
	submitter := evt.GetPayloadString(event.KeySubmittedBy)
	if submitter == "" || submitter == evt.ActorID {
		return nil
	}
	user, err := s.users.GetByID(ctx, submitter)
	if err != nil {
		return fmt.Errorf("failed to get submitter: %w", err)
	}
	if user == nil {
		s.logger.Info("Submitter no longer in directory", "user_id", submitter, "expense_id", evt.EntityID)
		return nil
	}

	payload := statusNotice(evt)
	if reason := evt.GetPayloadString(event.KeyReason); reason != "" {
		payload[event.KeyReason] = reason
	}
	return s.deliver(ctx, evt.ProductionID, user, notificationType, payload)
}

func (s *notificationServiceImpl) notifyRole(ctx context.Context, evt *event.Event, role entity.Role, notificationType string, payload map[string]interface{}) error {
	users, err := s.users.ListByRole(ctx, evt.ProductionID, role)
	if err != nil {
		return fmt.Errorf("failed to list %s users: %w", role, err)
	}
	for _, user := range users {
		if user.ID == evt.ActorID {
			continue
		}
		if err := s.deliver(ctx, evt.ProductionID, user, notificationType, payload); err != nil {
			return err
		}
	}
	return nil
}

// checkThreshold alerts producers once committed spend reaches the production's alert ratio
func (s *notificationServiceImpl) checkThreshold(ctx context.Context, evt *event.Event) error {
	departmentID := evt.GetPayloadString(event.KeyDepartmentID)
	production, err := s.productions.GetByID(ctx, evt.ProductionID)
	if err != nil {
		return fmt.Errorf("failed to get production: %w", err)
	}
	if production == nil {
		return nil
	}

	snapshot, err := s.guard.GetUtilization(ctx, evt.ProductionID, departmentID, production.BudgetAlertThreshold)
	if err != nil {
		return err
	}
	if !snapshot.IsThreshold {
		return nil
	}

	s.logger.Info("Department budget threshold reached",
		"department_id", departmentID,
		"utilization", snapshot.Utilization.String(),
		"threshold", snapshot.Threshold.String(),
	)
	return s.notifyRole(ctx, evt, entity.RoleProducer, entity.NotificationThresholdBreached, map[string]interface{}{
		event.KeyExpenseID:    evt.EntityID,
		event.KeyDepartmentID: departmentID,
		"allocated":           snapshot.Allocated.StringFixed(2),
		"committed":           snapshot.Committed.StringFixed(2),
		"utilization":         snapshot.Utilization.String(),
		"threshold":           snapshot.Threshold.String(),
	})
}

func (s *notificationServiceImpl) deliver(ctx context.Context, productionID string, user *entity.User, notificationType string, payload map[string]interface{}) error {
	n := &entity.Notification{
		ID:           newID(),
		ProductionID: productionID,
		UserID:       user.ID,
		Type:         notificationType,
		Payload:      payload,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pusher != nil {
		if err := s.pusher.Push(ctx, user, n); err != nil {
			// The in-app row is the record; push is best effort
			s.logger.Error("Failed to push notification", "error", err, "user_id", user.ID, "type", notificationType)
		}
	}
	return nil
}

func statusNotice(evt *event.Event) map[string]interface{} {
	payload := map[string]interface{}{
		event.KeyExpenseID: evt.EntityID,
		event.KeyFrom:      evt.GetPayloadString(event.KeyFrom),
		event.KeyTo:        evt.GetPayloadString(event.KeyTo),
		event.KeyAmount:    evt.GetPayloadString(event.KeyAmount),
	}
	if c := evt.GetPayloadString(event.KeyComment); c != "" {
		payload[event.KeyComment] = c
	}
	return payload
}
