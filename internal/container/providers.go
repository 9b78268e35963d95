// Package container provides dependency injection and lifecycle management
// for the expense approval service.
package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/application/dispatcher"
	"github.com/garyjia/cineexpense/internal/application/port"
	"github.com/garyjia/cineexpense/internal/application/service"
	"github.com/garyjia/cineexpense/internal/application/workflow"
	"github.com/garyjia/cineexpense/internal/config"
	"github.com/garyjia/cineexpense/internal/infrastructure/export"
	infraLark "github.com/garyjia/cineexpense/internal/infrastructure/external/lark"
	"github.com/garyjia/cineexpense/internal/infrastructure/identity"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/repository"
	"github.com/garyjia/cineexpense/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/cineexpense/internal/infrastructure/storage"
	"github.com/garyjia/cineexpense/pkg/database"
	"github.com/garyjia/cineexpense/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqldb.DB
}

// ProvideDatabase opens the configured driver and applies pending migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Driver:          database.Dialect(cfg.Driver),
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).Run(cfg.MigrationsDir); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqldb.NewDB(conn.DB, conn.Dialect, logger),
	}, nil
}

// ProvideRepositories creates all repository instances over db.
func ProvideRepositories(db *sqldb.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	audit := repository.NewAuditRepository(db, logger)
	return &RepositoryBundle{
		Workflow: workflow.Repositories{
			Productions: repository.NewProductionRepository(db, logger),
			Departments: repository.NewDepartmentRepository(db, logger),
			Expenses:    repository.NewExpenseRepository(db, logger),
			Receipts:    repository.NewReceiptRepository(db, logger),
			History:     repository.NewHistoryRepository(db, logger),
			Payments:    repository.NewPaymentRepository(db, logger),
			Audit:       audit,
		},
		Audit:         audit,
		Users:         repository.NewUserRepository(db, logger),
		Notifications: repository.NewNotificationRepository(db, logger),
	}, nil
}

// ProvideBlobStore creates the receipt store selected by cfg.Backend.
func ProvideBlobStore(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (port.BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return storage.NewLocalBlobStore(cfg.BaseDir, logger), nil
	case "minio":
		client, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		store := storage.NewMinioBlobStore(client, cfg.Minio.Bucket, logger)
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// ProvidePushNotifier returns the Lark notifier, or nil when Lark is not configured.
func ProvidePushNotifier(cfg *config.LarkConfig, logger *zap.Logger) port.PushNotifier {
	larkCfg := infraLark.Config{AppID: cfg.AppID, AppSecret: cfg.AppSecret}
	if !larkCfg.Enabled() {
		logger.Info("Lark credentials not set; push notifications disabled")
		return nil
	}
	client := infraLark.NewSDKClient(larkCfg, logger)
	return infraLark.NewNotifier(infraLark.NewMessenger(client, logger), logger)
}

// ProvideIdentity creates the bearer token provider.
func ProvideIdentity(cfg *config.AuthConfig, clock port.Clock, users port.UserRepository) *identity.JWTProvider {
	return identity.NewJWTProvider(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL, clock, users)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
	)
}

// EngineDeps holds dependencies for the workflow engines.
type EngineDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Clock      port.Clock
	Workflow   *config.WorkflowConfig
	Logger     *zap.Logger
}

// EngineBundle groups the expense and production engines.
type EngineBundle struct {
	Expense    workflow.ExpenseEngine
	Production workflow.ProductionEngine
}

// ProvideEngines creates the workflow engines with the configured rules.
func ProvideEngines(deps *EngineDeps) *EngineBundle {
	opts := []workflow.EngineOption{
		workflow.WithClock(deps.Clock),
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(utils.NewKVLogger(deps.Logger.Named("workflow"))),
		workflow.WithOverrideReasonMinLength(deps.Workflow.OverrideReasonMinLength),
		workflow.WithDepartmentLock(deps.Workflow.LockDepartmentOnBudgetCheck),
	}
	return &EngineBundle{
		Expense:    workflow.NewExpenseEngine(deps.Repos.Workflow, deps.TxManager, opts...),
		Production: workflow.NewProductionEngine(deps.Repos.Workflow.Productions, deps.Repos.Audit, deps.TxManager, opts...),
	}
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Engines    *EngineBundle
	TxManager  port.TransactionManager
	Blobs      port.BlobStore
	Pusher     port.PushNotifier
	Dispatcher dispatcher.Dispatcher
	Clock      port.Clock
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification handlers on the dispatcher.
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	logger := utils.NewKVLogger(deps.Logger.Named("service"))
	repos := deps.Repos

	notifications := service.NewNotificationService(repos.Notifications, repos.Users, repos.Workflow, deps.Pusher, deps.Clock, logger)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Expenses:      service.NewExpenseService(repos.Workflow, deps.Engines.Expense, deps.Blobs, deps.TxManager, deps.Clock, deps.Dispatcher, logger),
		Departments:   service.NewDepartmentService(repos.Workflow, deps.TxManager, deps.Clock, logger),
		Productions:   service.NewProductionService(repos.Workflow.Productions, repos.Users, deps.Engines.Production, logger),
		Reports:       service.NewReportService(repos.Workflow, export.NewBudgetWorkbook(deps.Logger.Named("export")), deps.Clock, logger),
		Notifications: notifications,
	}
}
