package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/dispatcher"
	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/service"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/config"
	"github.com/garyjia/cineexpense/internal/infrastructure/identity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
	httpserver "github.com/garyjia/cineexpense/internal/interfaces/http"
	"github.com/garyjia/cineexpense/pkg/database"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger
	clock  port.Clock

	// Infrastructure - Data
	conn         *database.DB
	db           *sqldb.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	blobs    port.BlobStore
	pusher   port.PushNotifier
	identity *identity.JWTProvider

	// Application
	dispatcher dispatcher.Dispatcher
	engines    *EngineBundle
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Workflow      workflow.Repositories
	Audit         port.AuditRepository
	Users         port.UserRepository
	Notifications port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Expenses      service.ExpenseService
	Departments   service.DepartmentService
	Productions   service.ProductionService
	Reports       service.ReportService
	Notifications service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
		clock:  utils.NewSystemClock(cfg.Workflow.Timezone),
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database and repositories
// 2. External adapters (blob store, Lark, identity)
// 3. Event dispatcher and workflow engines
// 4. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.config.Database.Driver))

	if err := c.initExternal(ctx); err != nil {
		return fmt.Errorf("failed to initialize external adapters: %w", err)
	}
	c.logger.Info("External adapters initialized",
		zap.String("storage", c.config.Storage.Backend),
		zap.Bool("lark_push", c.pusher != nil))

	c.initDispatcherAndEngines()
	c.logger.Info("Dispatcher and workflow engines initialized")

	c.initServices()
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Pending notification handlers finish before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.conn == nil:
		check("database", false, "not initialized")
	default:
		if err := c.conn.PingContext(ctx); err != nil {
			check("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			check("database", true, "")
		}
	}

	check("dispatcher", c.dispatcher != nil, messageIfNil(c.dispatcher == nil))
	check("repositories", c.repositories != nil, messageIfNil(c.repositories == nil))
	check("services", c.services != nil, messageIfNil(c.services == nil))

	return status
}

func messageIfNil(missing bool) string {
	if missing {
		return "not initialized"
	}
	return ""
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.conn = bundle.Conn
	c.db = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.conn.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initExternal(ctx context.Context) error {
	blobs, err := ProvideBlobStore(ctx, &c.config.Storage, c.logger.Named("storage"))
	if err != nil {
		return err
	}
	c.blobs = blobs
	c.pusher = ProvidePushNotifier(&c.config.Lark, c.logger.Named("lark"))
	c.identity = ProvideIdentity(&c.config.Auth, c.clock, c.repositories.Users)
	return nil
}

func (c *Container) initDispatcherAndEngines() {
	c.dispatcher = ProvideDispatcher(c.logger)
	c.engines = ProvideEngines(&EngineDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Clock:      c.clock,
		Workflow:   &c.config.Workflow,
		Logger:     c.logger,
	})
}

func (c *Container) initServices() {
	c.services = ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		Engines:    c.engines,
		TxManager:  c.db,
		Blobs:      c.blobs,
		Pusher:     c.pusher,
		Dispatcher: c.dispatcher,
		Clock:      c.clock,
		Logger:     c.logger,
	})
}

// HTTPServer builds the HTTP adapter over the started services.
func (c *Container) HTTPServer() *httpserver.Server {
	s := c.config.Server
	return httpserver.NewServer(httpserver.ServerConfig{
		Host:           s.Host,
		Port:           s.Port,
		ReadTimeout:    s.ReadTimeout,
		WriteTimeout:   s.WriteTimeout,
		MaxUploadBytes: s.MaxUploadBytes,
	}, httpserver.Services{
		Expenses:      c.services.Expenses,
		Departments:   c.services.Departments,
		Productions:   c.services.Productions,
		Reports:       c.services.Reports,
		Notifications: c.services.Notifications,
	}, c.identity, utils.NewKVLogger(c.logger.Named("http")))
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Identity returns the bearer token provider.
func (c *Container) Identity() *identity.JWTProvider {
	return c.identity
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
