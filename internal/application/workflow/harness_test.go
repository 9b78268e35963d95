package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/dispatcher"
	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/repository"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/cineexpense/internal/testutil"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// recordingDispatcher captures published events synchronously
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler)              {}
func (r *recordingDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler) {}
func (r *recordingDispatcher) Unsubscribe(event.Type, string)                        {}
func (r *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo      { return nil }
func (r *recordingDispatcher) Wait()                                                 {}
func (r *recordingDispatcher) Close() error                                          { return nil }

func (r *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	r.DispatchAsync(ctx, evt)
	return nil
}

func (r *recordingDispatcher) DispatchAsync(_ context.Context, evt *event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingDispatcher) Events() []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*event.Event(nil), r.events...)
}

// failingAudit rejects every entry after delegating nothing
type failingAudit struct{}

func (failingAudit) Record(context.Context, *entity.AuditLogEntry) error {
	return errors.New("audit store unavailable")
}

type harness struct {
	db     *sqldb.DB
	f      *testutil.Fixture
	repos  Repositories
	audit  port.AuditRepository
	clock  *utils.FixedClock
	events *recordingDispatcher
	engine ExpenseEngine
}

func newHarness(t *testing.T, allocated string, opts ...EngineOption) *harness {
	t.Helper()

	db := testutil.NewDB(t)
	logger := zap.NewNop()
	h := &harness{
		db:     db,
		f:      testutil.Seed(t, db, allocated),
		audit:  repository.NewAuditRepository(db, logger),
		clock:  utils.NewFixedClock(testutil.Today),
		events: &recordingDispatcher{},
	}
	h.repos = Repositories{
		Productions: repository.NewProductionRepository(db, logger),
		Departments: repository.NewDepartmentRepository(db, logger),
		Expenses:    repository.NewExpenseRepository(db, logger),
		Receipts:    repository.NewReceiptRepository(db, logger),
		History:     repository.NewHistoryRepository(db, logger),
		Payments:    repository.NewPaymentRepository(db, logger),
		Audit:       h.audit,
	}

	base := []EngineOption{WithClock(h.clock), WithDispatcher(h.events), WithLogger(utils.NewKVLogger(logger))}
	h.engine = NewExpenseEngine(h.repos, db, append(base, opts...)...)
	return h
}

// expense inserts an expense owned by the seeded supervisor, with one receipt
func (h *harness) expense(t *testing.T, amount string, status domainwf.ExpenseStatus) *entity.Expense {
	t.Helper()
	e := testutil.AddExpense(t, h.db, h.f, h.f.Department.ID, amount, status)
	testutil.AddReceipt(t, h.db, e.ID, e.SubmittedBy)
	return e
}

func (h *harness) transition(id string, to domainwf.ExpenseStatus, role entity.Role, comment string) (*entity.Expense, error) {
	return h.engine.Transition(context.Background(), TransitionRequest{
		ExpenseID: id,
		Target:    to,
		Actor:     h.f.Actor(role),
		Comment:   comment,
	})
}

func (h *harness) status(t *testing.T, id string) domainwf.ExpenseStatus {
	t.Helper()
	e, err := h.repos.Expenses.GetByID(context.Background(), h.f.Production.ID, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e.Status
}

func (h *harness) history(t *testing.T, id string) []*entity.ExpenseStatusHistory {
	t.Helper()
	rows, err := h.repos.History.ListByExpense(context.Background(), id)
	require.NoError(t, err)
	return rows
}

func (h *harness) auditActions(t *testing.T, entityType, id string) []string {
	t.Helper()
	entries, err := h.audit.ListByEntity(context.Background(), h.f.Production.ID, entityType, id)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), "error: %v", err)
}
