package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/domain/apperror"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/repository"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/cineexpense/internal/testutil"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// memoryBlobStore keeps blobs in a map
type memoryBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	deleted []string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *memoryBlobStore) Put(_ context.Context, key string, content []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.blobs[key] = content
	return "mem://" + key, nil
}

func (m *memoryBlobStore) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.blobs[ref[len("mem://"):]]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return content, nil
}

func (m *memoryBlobStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref[len("mem://"):])
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *memoryBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// failingReceipts wraps a receipt repository and rejects every insert
type failingReceipts struct {
	port.ReceiptRepository
}

func (failingReceipts) Create(context.Context, *entity.ExpenseReceipt) error {
	return errors.New("disk full")
}

type env struct {
	db            *sqldb.DB
	f             *testutil.Fixture
	repos         workflow.Repositories
	audit         port.AuditRepository
	users         port.UserRepository
	notifications port.NotificationRepository
	clock         *utils.FixedClock
	blobs         *memoryBlobStore
	logger        Logger
}

func newEnv(t *testing.T, allocated string) *env {
	t.Helper()

	db := testutil.NewDB(t)
	logger := zap.NewNop()
	e := &env{
		db:            db,
		f:             testutil.Seed(t, db, allocated),
		audit:         repository.NewAuditRepository(db, logger),
		users:         repository.NewUserRepository(db, logger),
		notifications: repository.NewNotificationRepository(db, logger),
		clock:         utils.NewFixedClock(testutil.Today),
		blobs:         newMemoryBlobStore(),
		logger:        utils.NewKVLogger(logger),
	}
	e.repos = workflow.Repositories{
		Productions: repository.NewProductionRepository(db, logger),
		Departments: repository.NewDepartmentRepository(db, logger),
		Expenses:    repository.NewExpenseRepository(db, logger),
		Receipts:    repository.NewReceiptRepository(db, logger),
		History:     repository.NewHistoryRepository(db, logger),
		Payments:    repository.NewPaymentRepository(db, logger),
		Audit:       e.audit,
	}
	return e
}

func (e *env) expenseService() ExpenseService {
	engine := workflow.NewExpenseEngine(e.repos, e.db, workflow.WithClock(e.clock))
	return NewExpenseService(e.repos, engine, e.blobs, e.db, e.clock, nil, e.logger)
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), "error: %v", err)
}
