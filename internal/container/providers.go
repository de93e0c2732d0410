package container

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/report-approval/internal/application/dispatcher"
	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/application/service"
	"github.com/garyjia/report-approval/internal/application/workflow"
	infraLark "github.com/garyjia/report-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/report-approval/internal/infrastructure/external/push"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/report-approval/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Database       *database.DB
	TransactionMgr *sqlite.DB
}

// SqlDB returns the underlying connection pool.
func (b *DatabaseBundle) SqlDB() *sql.DB {
	return b.Database.DB
}

// ProvideDatabase opens the database, runs pending migrations and wraps the
// pool in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Database:       db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Report:       repository.NewReportRepository(sqlDB, logger),
		History:      repository.NewHistoryRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
		Attendance:   repository.NewAttendanceRepository(sqlDB, logger),
		User:         repository.NewUserRepository(sqlDB, logger),
	}, nil
}

// ProvideRunner creates the background task runner used for push delivery.
func ProvideRunner(cfg *WorkflowConfig, logger *zap.Logger) (dispatcher.Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	}
	if cfg.TaskTimeout > 0 {
		opts = append(opts, dispatcher.WithDefaultTimeout(cfg.TaskTimeout))
	}

	return dispatcher.NewRunner(opts...), nil
}

// ProvidePushSender selects the push delivery provider.
// The lark provider resolves recipients' open ids through users.
func ProvidePushSender(cfg *PushConfig, larkCfg *LarkConfig, users port.UserRepository, logger *zap.Logger) (port.PushSender, error) {
	if cfg == nil || larkCfg == nil {
		return nil, fmt.Errorf("push config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Provider {
	case PushProviderHTTP:
		return push.NewHTTPSender(push.HTTPConfig{
			Endpoint:  cfg.Endpoint,
			AuthToken: cfg.AuthToken,
			Timeout:   cfg.Timeout,
		}, logger), nil
	case PushProviderLark:
		if users == nil {
			return nil, fmt.Errorf("user repository is required for the lark provider")
		}
		client := infraLark.NewSDKClient(infraLark.Config{
			AppID:     larkCfg.AppID,
			AppSecret: larkCfg.AppSecret,
			BaseURL:   larkCfg.BaseURL,
			Timeout:   larkCfg.APITimeout,
		}, logger)
		return infraLark.NewMessenger(client, users, logger), nil
	case PushProviderNoop, "":
		return push.NewNoopSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Provider)
	}
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Sender    port.PushSender
	Runner    dispatcher.Runner
	Workflow  *WorkflowConfig
	Push      *PushConfig
	Logger    *zap.Logger
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
	if deps.Sender == nil {
		return nil, fmt.Errorf("push sender is required")
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("task runner is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	var dispatcherOpts []service.DispatcherOption
	if deps.Workflow != nil && len(deps.Workflow.TypeLabels) > 0 {
		dispatcherOpts = append(dispatcherOpts, service.WithTypeLabels(deps.Workflow.TypeLabels))
	}
	if deps.Push != nil && deps.Push.Timeout > 0 {
		dispatcherOpts = append(dispatcherOpts, service.WithPushTimeout(deps.Push.Timeout))
	}

	history := service.NewApprovalHistoryRecorder(deps.Repos.History, serviceLogger)

	return &ServiceBundle{
		History: history,
		Notifications: service.NewNotificationDispatcher(
			deps.Repos.User,
			deps.Repos.Notification,
			deps.Sender,
			deps.Runner,
			serviceLogger,
			dispatcherOpts...,
		),
		Attendance: service.NewAttendanceSynchronizer(
			deps.Repos.Attendance,
			deps.TxManager,
			serviceLogger,
		),
		Reports: service.NewReportService(
			deps.Repos.Report,
			history,
			deps.Repos.Notification,
			deps.Repos.User,
			serviceLogger,
		),
	}, nil
}

// ProvideCoordinator creates the workflow coordinator over the services.
func ProvideCoordinator(repos *RepositoryBundle, services *ServiceBundle, cfg *WorkflowConfig, logger *zap.Logger) (workflow.Coordinator, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	var opts []workflow.CoordinatorOption
	if cfg != nil {
		opts = append(opts, workflow.WithAttendanceProvenance(cfg.AttendanceCheckedVia, cfg.AttendanceType))
	}

	return workflow.NewCoordinator(
		repos.Report,
		services.History,
		services.Notifications,
		services.Attendance,
		&zapLoggerAdapter{logger: logger},
		opts...,
	), nil
}
