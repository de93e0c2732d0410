package config

import (
	"github.com/garyjia/report-approval/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	labels := make(map[string]string, len(c.Workflow.TypeLabels))
	for k, v := range c.Workflow.TypeLabels {
		labels[k] = v
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Push: container.PushConfig{
			Provider:  c.Push.Provider,
			Endpoint:  c.Push.Endpoint,
			AuthToken: c.Push.AuthToken,
			Timeout:   c.Push.Timeout,
		},
		Lark: container.LarkConfig{
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			BaseURL:    c.Lark.BaseURL,
			APITimeout: c.Lark.APITimeout,
		},
		Workflow: container.WorkflowConfig{
			AttendanceCheckedVia: c.Workflow.AttendanceCheckedVia,
			AttendanceType:       c.Workflow.AttendanceType,
			TypeLabels:           labels,
			TaskTimeout:          c.Workflow.TaskTimeout,
		},
	}
}
