package config

import (
	"github.com/garyjia/expense-requirement/internal/container"
	"github.com/garyjia/expense-requirement/pkg/utils"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	users := make([]container.UserConfig, 0, len(c.Directory.Users))
	for _, u := range c.Directory.Users {
		users = append(users, container.UserConfig{
			ID:           u.ID,
			Name:         u.Name,
			DepartmentID: u.DepartmentID,
			Role:         u.Role,
		})
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Lock: container.LockConfig{
			Backend:       c.Lock.Backend,
			RedisAddr:     c.Lock.RedisAddr,
			RedisPassword: c.Lock.RedisPassword,
			RedisDB:       c.Lock.RedisDB,
			Prefix:        c.Lock.Prefix,
			TTL:           c.Lock.TTL,
			RetryInterval: c.Lock.RetryInterval,
			MaxRetries:    c.Lock.MaxRetries,
		},
		Policy: container.PolicyConfig{
			PresidentDepartments: c.Policy.PresidentDepartments,
			PresidentKinds:       c.Policy.PresidentKinds,
		},
		Directory: container.DirectoryConfig{Users: users},
		Export: container.ExportConfig{
			OutputDir:   c.Export.OutputDir,
			CompanyName: c.Export.CompanyName,
			Interval:    c.Export.Interval,
		},
		Telemetry: container.TelemetryConfig{Enabled: c.Telemetry.Enabled},
	}
}

// LoggerConfig converts the logger section for utils.NewLogger.
func (c *Config) LoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}
