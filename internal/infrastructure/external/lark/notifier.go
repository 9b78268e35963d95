package lark

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
)

// Notifier implements port.PushNotifier over Lark IM
type Notifier struct {
	messenger *Messenger
	logger    *zap.Logger
}

// NewNotifier creates a new Notifier
func NewNotifier(messenger *Messenger, logger *zap.Logger) *Notifier {
	return &Notifier{
		messenger: messenger,
		logger:    logger,
	}
}

// Push sends n to the recipient's Lark account. Users without an open id or
// email are skipped.
func (n *Notifier) Push(ctx context.Context, recipient *entity.User, notification *entity.Notification) error {
	idType, id := receiver(recipient)
	if id == "" {
		n.logger.Debug("Recipient has no Lark identity", zap.String("user_id", recipient.ID))
		return nil
	}
	return n.messenger.SendText(ctx, idType, id, FormatNotification(notification))
}

func receiver(u *entity.User) (string, string) {
	switch {
	case u.LarkOpenID != "":
		return ReceiveByOpenID, u.LarkOpenID
	case u.Email != "":
		return ReceiveByEmail, u.Email
	default:
		return "", ""
	}
}

// FormatNotification renders a notification as one line of text
func FormatNotification(n *entity.Notification) string {
	str := func(key string) string {
		if v, ok := n.Payload[key].(string); ok {
			return v
		}
		return ""
	}

	var b strings.Builder
	switch n.Type {
	case entity.NotificationStatusChanged:
		fmt.Fprintf(&b, "Expense %s moved from %s to %s", str(event.KeyExpenseID), str(event.KeyFrom), str(event.KeyTo))
		if amount := str(event.KeyAmount); amount != "" {
			fmt.Fprintf(&b, " (amount %s)", amount)
		}
		if comment := str(event.KeyComment); comment != "" {
			fmt.Fprintf(&b, ": %s", comment)
		}
	case entity.NotificationBudgetOverride:
		fmt.Fprintf(&b, "Producer approved expense %s over budget", str(event.KeyExpenseID))
		if reason := str(event.KeyReason); reason != "" {
			fmt.Fprintf(&b, ": %s", reason)
		}
	case entity.NotificationThresholdBreached:
		fmt.Fprintf(&b, "Department %s has committed %s of %s (utilization %s, alert at %s)",
			str(event.KeyDepartmentID), str("committed"), str("allocated"), str("utilization"), str("threshold"))
	default:
		fmt.Fprintf(&b, "New %s notification", n.Type)
	}
	return b.String()
}

var _ port.PushNotifier = (*Notifier)(nil)
