package port

import (
	"context"
	"time"

	"github.com/garyjia/cineexpense/internal/domain/entity"
)

// Clock supplies "now" so date checks can be pinned in tests
type Clock interface {
	Now() time.Time
}

// IdentityProvider resolves the caller behind a bearer credential
type IdentityProvider interface {
	Resolve(ctx context.Context, token string) (entity.Actor, error)
}

// PushNotifier mirrors in-app notifications to an external channel
type PushNotifier interface {
	Push(ctx context.Context, recipient *entity.User, notification *entity.Notification) error
}

// BudgetReportRenderer renders department utilization rows into a downloadable document
type BudgetReportRenderer interface {
	Render(ctx context.Context, report *BudgetReport) ([]byte, error)
	ContentType() string
}
