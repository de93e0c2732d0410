package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/report-approval/internal/application/dispatcher"
	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/application/service"
	"github.com/garyjia/report-approval/internal/application/workflow"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/report-approval/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	pushSender port.PushSender

	// Application
	runner      dispatcher.Runner
	services    *ServiceBundle
	coordinator workflow.Coordinator

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Report       port.ReportRepository
	History      port.HistoryRepository
	Notification port.NotificationRepository
	Attendance   port.AttendanceRepository
	User         port.UserRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	History       *service.ApprovalHistoryRecorder
	Notifications *service.NotificationDispatcher
	Attendance    *service.AttendanceSynchronizer
	Reports       service.ReportService
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

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database, migrations and repositories
// 2. Task runner
// 3. Push sender
// 4. Application services
// 5. Workflow coordinator
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize task runner
	runner, err := ProvideRunner(&c.config.Workflow, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize task runner: %w", err)
	}
	c.runner = runner

	// Step 3: Initialize push sender
	sender, err := ProvidePushSender(&c.config.Push, &c.config.Lark, c.repositories.User, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize push sender: %w", err)
	}
	c.pushSender = sender
	c.logger.Info("Push sender initialized", zap.String("provider", c.config.Push.Provider))

	// Step 4: Initialize application services
	services, err := ProvideServices(&ServiceDeps{
		Repos:     c.repositories,
		TxManager: c.db,
		Sender:    c.pushSender,
		Runner:    c.runner,
		Workflow:  &c.config.Workflow,
		Push:      &c.config.Push,
		Logger:    c.logger,
	})
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services

	// Step 5: Initialize workflow coordinator
	coordinator, err := ProvideCoordinator(c.repositories, c.services, &c.config.Workflow, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize coordinator: %w", err)
	}
	c.coordinator = coordinator

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// teardown releases what a failed Start had opened.
func (c *Container) teardown() {
	if c.runner != nil {
		_ = c.runner.Close()
		c.runner = nil
	}
	if c.database != nil {
		_ = c.database.Close()
		c.database = nil
	}
}

// Close gracefully shuts down all components in reverse order.
// In-flight push tasks are drained before the database is closed.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Drain the task runner
	if c.runner != nil {
		if err := c.runner.Close(); err != nil {
			c.logger.Error("Failed to close task runner", zap.Error(err))
			errs = append(errs, fmt.Errorf("close runner: %w", err))
		} else {
			c.logger.Info("Task runner closed")
		}
	}

	// Step 2: Close database
	if c.database != nil {
		if err := c.database.Close(); err != nil {
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
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.database != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.database.Health(pingCtx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check push sender
	if c.pushSender != nil {
		status.Components["push"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("provider: %s", c.config.Push.Provider),
		}
	} else {
		status.Components["push"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check coordinator
	if c.coordinator != nil {
		status.Components["workflow"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["workflow"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.Database
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(dbBundle.SqlDB(), c.logger)
	if err != nil {
		_ = c.database.Close()
		c.database = nil
		return err
	}

	c.repositories = repos
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// PushSender returns the configured push provider.
func (c *Container) PushSender() port.PushSender {
	return c.pushSender
}

// Runner returns the background task runner.
func (c *Container) Runner() dispatcher.Runner {
	return c.runner
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Coordinator returns the workflow coordinator.
func (c *Container) Coordinator() workflow.Coordinator {
	return c.coordinator
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// ServiceLogger returns the container's logger in key-value form.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger and
// dispatcher.Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
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
