package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/application/dispatcher"
	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/application/service"
	"github.com/garyjia/expense-requirement/internal/infrastructure/directory"
	"github.com/garyjia/expense-requirement/internal/infrastructure/lock"
	"github.com/garyjia/expense-requirement/internal/infrastructure/persistence/memory"
	"github.com/garyjia/expense-requirement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-requirement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-requirement/internal/infrastructure/telemetry"
	"github.com/garyjia/expense-requirement/internal/infrastructure/worker"
	"github.com/garyjia/expense-requirement/internal/voucher"
	"github.com/garyjia/expense-requirement/pkg/database"
)

// DatabaseBundle holds database-related components.
// SqlDB is nil for the memory driver.
type DatabaseBundle struct {
	SqlDB     *sql.DB
	TxManager port.TransactionManager
	Repos     *RepositoryBundle
}

// LockBundle holds the locker and, for the redis backend, its client.
type LockBundle struct {
	Locker port.Locker
	Redis  *redis.Client
}

// ProvideDatabase opens the configured store, applies migrations and
// builds the repositories on top of it.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == DriverMemory {
		store := memory.NewStore()
		logger.Info("Using in-memory requirement store")
		return &DatabaseBundle{
			TxManager: store,
			Repos: &RepositoryBundle{
				Requirement: store.Requirements(),
				History:     store.History(),
			},
		}, nil
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:     db.DB,
		TxManager: sqlite.NewDB(db.DB, logger),
		Repos: &RepositoryBundle{
			Requirement: repository.NewRequirementRepository(db.DB, logger),
			History:     repository.NewHistoryRepository(db.DB, logger),
		},
	}, nil
}

// ProvideLocker creates the per-requirement lock.
func ProvideLocker(ctx context.Context, cfg *LockConfig, logger *zap.Logger) (*LockBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lock config is required")
	}

	if cfg.Backend != LockRedis {
		return &LockBundle{Locker: lock.NewLocalLocker()}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("Redis lock backend connected", zap.String("addr", cfg.RedisAddr))

	return &LockBundle{
		Locker: lock.NewRedisLocker(client, lock.RedisConfig{
			Prefix:        cfg.Prefix,
			TTL:           cfg.TTL,
			RetryInterval: cfg.RetryInterval,
			MaxRetries:    cfg.MaxRetries,
		}, logger),
		Redis: client,
	}, nil
}

// ProvideDirectory builds the static user directory from config.
func ProvideDirectory(cfg *DirectoryConfig) (*directory.StaticDirectory, error) {
	users, err := cfg.Entities()
	if err != nil {
		return nil, err
	}
	return directory.NewStaticDirectory(users)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Directory  port.UserDirectory
	Locker     port.Locker
	Ledger     port.SubLedger
	Dispatcher dispatcher.Dispatcher
	Policy     *PolicyConfig
	Export     *ExportConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if deps.Locker == nil {
		return nil, fmt.Errorf("locker is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	opts := []service.RequirementOption{}
	if deps.Ledger != nil {
		opts = append(opts, service.WithSubLedger(deps.Ledger))
	}
	if deps.Dispatcher != nil {
		opts = append(opts, service.WithDispatcher(deps.Dispatcher))
	}
	if deps.Policy != nil {
		kinds, err := deps.Policy.Kinds()
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithPresidentPolicy(
			service.NewPresidentPolicy(deps.Policy.PresidentDepartments, kinds)))
	}

	bundle := &ServiceBundle{
		Requirement: service.NewRequirementService(
			deps.Repos.Requirement,
			deps.Repos.History,
			deps.TxManager,
			deps.Directory,
			deps.Locker,
			serviceLogger,
			opts...,
		),
	}

	if deps.Export != nil {
		bundle.Disbursement = service.NewDisbursementService(
			deps.Repos.Requirement,
			voucher.NewSheetWriter(deps.Export.OutputDir, deps.Export.CompanyName, deps.Logger),
			port.SystemClock,
			serviceLogger,
		)
	}
	return bundle, nil
}

// ProvideWorkers creates the worker manager and registers the scheduled
// disbursement export when an interval is configured.
func ProvideWorkers(cfg *ExportConfig, services *ServiceBundle, logger *zap.Logger) *worker.WorkerManager {
	manager := worker.NewWorkerManager(logger)
	if cfg.Interval > 0 && services.Disbursement != nil {
		manager.Register(worker.NewExportWorker(cfg.Interval, services.Disbursement, logger))
	}
	return manager
}

// InstrumentRepositories wraps the repositories with telemetry when enabled.
func InstrumentRepositories(repos *RepositoryBundle, p *telemetry.Provider) *RepositoryBundle {
	return &RepositoryBundle{
		Requirement: telemetry.WrapRequirements(repos.Requirement, p),
		History:     telemetry.WrapHistory(repos.History, p),
	}
}

// zapLoggerAdapter adapts zap.Logger to the service and dispatcher Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
