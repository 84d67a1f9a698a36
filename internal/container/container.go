package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/application/dispatcher"
	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/application/service"
	"github.com/garyjia/expense-requirement/internal/infrastructure/directory"
	"github.com/garyjia/expense-requirement/internal/infrastructure/ledger"
	"github.com/garyjia/expense-requirement/internal/infrastructure/telemetry"
	"github.com/garyjia/expense-requirement/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	txManager    port.TransactionManager
	repositories *RepositoryBundle
	telemetry    *telemetry.Provider

	// Infrastructure - Coordination
	locker      port.Locker
	redisClient *redis.Client

	// Infrastructure - External
	directory *directory.StaticDirectory
	ledger    *ledger.MemoryLedger

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requirement port.RequirementRepository
	History     port.HistoryRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requirement  service.RequirementService
	Disbursement service.DisbursementService
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
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
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
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, repositories and storage telemetry
// 2. Requirement locker
// 3. User directory and sub-ledger
// 4. Event dispatcher
// 5. Application services
// 6. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.config.Database.Driver))

	// Step 2: Initialize locker
	if err := c.initLocker(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize locker: %w", err)
	}
	c.logger.Info("Locker initialized", zap.String("backend", c.config.Lock.Backend))

	// Step 3: Initialize directory and ledger
	if err := c.initExternal(); err != nil {
		c.closeLocker()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize external components: %w", err)
	}
	c.logger.Info("Directory initialized", zap.Int("users", c.directory.Len()))

	// Step 4: Initialize dispatcher
	if err := c.initDispatcher(); err != nil {
		c.closeLocker()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized")

	// Step 5: Initialize application services
	if err := c.initServices(); err != nil {
		_ = c.dispatcher.Close()
		c.closeLocker()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 6: Initialize and start workers
	c.workers = ProvideWorkers(&c.config.Export, c.services, c.logger)
	if err := c.workers.StartAll(c.ctx); err != nil {
		_ = c.dispatcher.Close()
		c.closeLocker()
		c.closeDatabase()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started", zap.Int("count", c.workers.GetWorkerCount()))

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

	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 6)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	// Step 2: Services don't need explicit cleanup (reverse of step 5)

	// Step 3: Drain dispatcher (reverse of step 4)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 4: Directory and ledger are in-process (reverse of step 3)

	// Step 5: Close redis client (reverse of step 2)
	if err := c.closeLocker(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}

	// Step 6: Flush telemetry, then close database (reverse of step 1)
	if c.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.telemetry.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("Failed to shut down telemetry", zap.Error(err))
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
		cancel()
	}
	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
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
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}
	notInitialized := ComponentHealth{Healthy: false, Message: "not initialized"}

	switch {
	case c.sqlDB != nil:
		if err := c.sqlDB.Ping(); err != nil {
			set("database", ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	case c.txManager != nil:
		set("database", ComponentHealth{Healthy: true, Message: "in-memory"})
	default:
		set("database", notInitialized)
	}

	switch {
	case c.redisClient != nil:
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			set("locker", ComponentHealth{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)})
		} else {
			set("locker", ComponentHealth{Healthy: true, Message: "redis"})
		}
		cancel()
	case c.locker != nil:
		set("locker", ComponentHealth{Healthy: true, Message: "local"})
	default:
		set("locker", notInitialized)
	}

	if c.directory != nil {
		set("directory", ComponentHealth{Healthy: true, Message: fmt.Sprintf("user count: %d", c.directory.Len())})
	} else {
		set("directory", notInitialized)
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", notInitialized)
	}

	if c.services != nil {
		set("services", ComponentHealth{Healthy: true})
	} else {
		set("services", notInitialized)
	}

	if c.workers != nil {
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		})
	} else {
		set("workers", notInitialized)
	}

	return status
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.txManager = dbBundle.TxManager
	c.telemetry = telemetry.NewProvider(telemetry.Config{Enabled: c.config.Telemetry.Enabled})
	c.repositories = InstrumentRepositories(dbBundle.Repos, c.telemetry)
	return nil
}

func (c *Container) initLocker() error {
	bundle, err := ProvideLocker(c.ctx, &c.config.Lock, c.logger)
	if err != nil {
		return err
	}
	c.locker = bundle.Locker
	c.redisClient = bundle.Redis
	return nil
}

func (c *Container) initExternal() error {
	dir, err := ProvideDirectory(&c.config.Directory)
	if err != nil {
		return err
	}
	c.directory = dir
	c.ledger = ledger.NewMemoryLedger()
	return nil
}

// initDispatcher creates the dispatcher and registers in-process subscribers.
func (c *Container) initDispatcher() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	c.ledger.Subscribe(disp)
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Directory:  c.directory,
		Locker:     c.locker,
		Ledger:     c.ledger,
		Dispatcher: c.dispatcher,
		Policy:     &c.config.Policy,
		Export:     &c.config.Export,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

func (c *Container) closeLocker() error {
	if c.redisClient == nil {
		return nil
	}
	err := c.redisClient.Close()
	if err != nil {
		c.logger.Error("Failed to close redis client", zap.Error(err))
	} else {
		c.logger.Info("Redis client closed")
	}
	c.redisClient = nil
	return err
}

func (c *Container) closeDatabase() error {
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.sqlDB = nil
	return err
}

// Getters for accessing container components

// TxManager returns the transaction manager.
func (c *Container) TxManager() port.TransactionManager {
	return c.txManager
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Locker returns the requirement locker.
func (c *Container) Locker() port.Locker {
	return c.locker
}

// Directory returns the user directory.
func (c *Container) Directory() *directory.StaticDirectory {
	return c.directory
}

// Ledger returns the advance sub-ledger.
func (c *Container) Ledger() *ledger.MemoryLedger {
	return c.ledger
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Telemetry returns the storage telemetry provider.
func (c *Container) Telemetry() *telemetry.Provider {
	return c.telemetry
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
