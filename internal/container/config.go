// Package container provides dependency injection and lifecycle management
// for the report approval service.
package container

import (
	"fmt"
	"time"
)

// Push providers understood by ProvidePushSender.
const (
	PushProviderHTTP = "http"
	PushProviderLark = "lark"
	PushProviderNoop = "noop"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Push delivery configuration
	Push PushConfig

	// Lark API configuration
	Lark LarkConfig

	// Workflow coordinator configuration
	Workflow WorkflowConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// PushConfig holds push delivery settings.
type PushConfig struct {
	// Provider is one of http, lark, noop
	Provider string

	// Endpoint receives the JSON push payload (http provider)
	Endpoint string

	// AuthToken is sent as a bearer token when set
	AuthToken string

	// Timeout bounds one push attempt
	Timeout time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	AppID      string
	AppSecret  string
	BaseURL    string
	APITimeout time.Duration
}

// WorkflowConfig holds coordinator settings.
type WorkflowConfig struct {
	// AttendanceCheckedVia is the provenance tag owned by report reconciliation
	AttendanceCheckedVia string

	// AttendanceType is used when a sheet does not name one
	AttendanceType string

	// TypeLabels overrides the report type display labels
	TypeLabels map[string]string

	// TaskTimeout is the default background task timeout
	TaskTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/reports.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Push: PushConfig{
			Provider: PushProviderNoop,
			Timeout:  5 * time.Second,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		Workflow: WorkflowConfig{
			AttendanceCheckedVia: "cell_report",
			AttendanceType:       "cell_meeting",
			TaskTimeout:          10 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Push.Provider {
	case PushProviderNoop, "":
	case PushProviderHTTP:
		if c.Push.Endpoint == "" {
			return fmt.Errorf("push.endpoint is required for the http provider")
		}
	case PushProviderLark:
		if c.Lark.AppID == "" || c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_id and lark.app_secret are required for the lark provider")
		}
	default:
		return fmt.Errorf("unknown push provider %q", c.Push.Provider)
	}

	return nil
}
