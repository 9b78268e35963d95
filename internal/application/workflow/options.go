package workflow

import (
	"github.com/garyjia/cineexpense/internal/application/dispatcher"
	"github.com/garyjia/cineexpense/internal/application/port"
)

// DefaultOverrideReasonMinLength is the shortest accepted producer override reason
const DefaultOverrideReasonMinLength = 10

// Repositories groups the stores the engines read and write
type Repositories struct {
	Productions port.ProductionRepository
	Departments port.DepartmentRepository
	Expenses    port.ExpenseRepository
	Receipts    port.ReceiptRepository
	History     port.HistoryRepository
	Payments    port.PaymentRepository
	Audit       port.AuditSink
}

type engineConfig struct {
	dispatcher        dispatcher.Dispatcher
	logger            Logger
	clock             port.Clock
	overrideMinLength int
	lockDepartment    bool
}

// EngineOption configures the workflow engines
type EngineOption func(*engineConfig)

// WithDispatcher publishes domain events after each commit
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(c *engineConfig) {
		c.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithClock sets the source of "now" for timestamps and date checks
func WithClock(clock port.Clock) EngineOption {
	return func(c *engineConfig) {
		c.clock = clock
	}
}

// WithOverrideReasonMinLength sets the minimum trimmed length of an override reason
func WithOverrideReasonMinLength(n int) EngineOption {
	return func(c *engineConfig) {
		if n > 0 {
			c.overrideMinLength = n
		}
	}
}

// WithDepartmentLock locks the department row during the budget check
func WithDepartmentLock(enabled bool) EngineOption {
	return func(c *engineConfig) {
		c.lockDepartment = enabled
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	cfg := engineConfig{
		logger:            nopLogger{},
		clock:             systemClock{},
		overrideMinLength: DefaultOverrideReasonMinLength,
		lockDepartment:    true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
