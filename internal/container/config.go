// Package container provides dependency injection and lifecycle management
// for the requirement lifecycle engine following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

// Database drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Lock backends
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all configuration for the Container.
type Config struct {
	Database  DatabaseConfig
	Lock      LockConfig
	Policy    PolicyConfig
	Directory DirectoryConfig
	Export    ExportConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is "sqlite" or "memory"
	Driver string

	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout bounds how long a transaction waits for the write lock
	BusyTimeout time.Duration
}

// LockConfig selects how requirements are locked for mutation.
type LockConfig struct {
	// Backend is "local" for a single process or "redis" for a shared lock
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Prefix string
	// TTL is the redis lease. It is renewed while held but must still be
	// longer than database.busy_timeout so a holder waiting on SQLite keeps it.
	TTL           time.Duration
	RetryInterval time.Duration
	MaxRetries    int
}

// PolicyConfig decides when the president joins the approval chain.
type PolicyConfig struct {
	PresidentDepartments []int
	PresidentKinds       []string
}

// DirectoryConfig lists the users known to the static directory.
type DirectoryConfig struct {
	Users []UserConfig
}

// UserConfig is one directory entry.
type UserConfig struct {
	ID           string
	Name         string
	DepartmentID int
	Role         string
}

// ExportConfig holds disbursement sheet settings.
type ExportConfig struct {
	OutputDir   string
	CompanyName string

	// Interval between scheduled exports; zero disables the export worker
	Interval time.Duration
}

// TelemetryConfig toggles storage instrumentation.
type TelemetryConfig struct {
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/requirements.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Lock: LockConfig{
			Backend:       LockLocal,
			Prefix:        "requirement:lock:",
			TTL:           30 * time.Second,
			RetryInterval: 50 * time.Millisecond,
			MaxRetries:    100,
		},
		Export: ExportConfig{
			OutputDir: "exports",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	switch c.Lock.Backend {
	case LockLocal:
	case LockRedis:
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("lock.redis_addr is required for the redis backend")
		}
		if c.Database.Driver == DriverSQLite && c.Lock.TTL <= c.Database.BusyTimeout {
			return fmt.Errorf("lock.ttl (%s) must exceed database.busy_timeout (%s)",
				c.Lock.TTL, c.Database.BusyTimeout)
		}
	default:
		return fmt.Errorf("unknown lock.backend %q", c.Lock.Backend)
	}

	for _, d := range c.Policy.PresidentDepartments {
		if d < 0 || d > 99 {
			return fmt.Errorf("policy.president_departments: %d outside 0-99", d)
		}
	}
	if _, err := c.Policy.Kinds(); err != nil {
		return fmt.Errorf("policy.president_kinds: %w", err)
	}

	if _, err := c.Directory.Entities(); err != nil {
		return fmt.Errorf("directory.users: %w", err)
	}

	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir is required")
	}
	if c.Export.Interval < 0 {
		return fmt.Errorf("export.interval must not be negative")
	}

	return nil
}

// Kinds parses the configured president kinds
func (p PolicyConfig) Kinds() ([]entity.Kind, error) {
	kinds := make([]entity.Kind, 0, len(p.PresidentKinds))
	for _, k := range p.PresidentKinds {
		kind, err := entity.ParseKind(k)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Entities converts the configured users into directory entries
func (d DirectoryConfig) Entities() ([]entity.User, error) {
	users := make([]entity.User, 0, len(d.Users))
	seen := make(map[string]bool, len(d.Users))
	for _, u := range d.Users {
		role, err := entity.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("duplicate user %s", u.ID)
		}
		seen[u.ID] = true
		users = append(users, entity.User{
			ID:           u.ID,
			Name:         u.Name,
			DepartmentID: u.DepartmentID,
			Role:         role,
		})
	}
	return users, nil
}
