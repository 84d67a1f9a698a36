package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Lock      LockConfig      `mapstructure:"lock"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Export    ExportConfig    `mapstructure:"export"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LockConfig holds requirement lock configuration
type LockConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// PolicyConfig decides which requirements need presidential approval
type PolicyConfig struct {
	PresidentDepartments []int    `mapstructure:"president_departments"`
	PresidentKinds       []string `mapstructure:"president_kinds"`
}

// DirectoryConfig lists the users allowed to act on requirements
type DirectoryConfig struct {
	Users []UserConfig `mapstructure:"users"`
}

// UserConfig is a single directory entry
type UserConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	DepartmentID int    `mapstructure:"department_id"`
	Role         string `mapstructure:"role"`
}

// ExportConfig holds disbursement sheet configuration
type ExportConfig struct {
	OutputDir   string        `mapstructure:"output_dir"`
	CompanyName string        `mapstructure:"company_name"`
	Interval    time.Duration `mapstructure:"interval"`
}

// TelemetryConfig toggles storage metrics and spans
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// Each env file that exists is loaded first; variables already set in the
// process environment win over the file.
func Load(configPath string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := gotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/requirements.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Lock defaults
	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.prefix", "requirement:lock:")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retry_interval", 50*time.Millisecond)
	v.SetDefault("lock.max_retries", 100)

	// Export defaults
	v.SetDefault("export.output_dir", "exports")
	v.SetDefault("export.interval", 0)

	v.SetDefault("telemetry.enabled", false)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.driver":     "DATABASE_DRIVER",
		"database.path":       "DATABASE_PATH",
		"lock.backend":        "LOCK_BACKEND",
		"lock.redis_addr":     "REDIS_ADDR",
		"lock.redis_password": "REDIS_PASSWORD",
		"export.company_name": "COMPANY_NAME",
		"telemetry.enabled":   "TELEMETRY_ENABLED",
		"logger.level":        "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Export.CompanyName == "" {
		return fmt.Errorf("export.company_name is required")
	}
	if len(c.Directory.Users) == 0 {
		return fmt.Errorf("directory.users must list at least one user")
	}
	if err := c.LoggerConfig().Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	// Engine-level checks live with the container
	return c.ToContainerConfig().Validate()
}
