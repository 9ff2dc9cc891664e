package database

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Type defines the supported database backends.
type Type string

const (
	// TypeSQLite uses the pure-Go SQLite engine (single process, default).
	TypeSQLite Type = "sqlite"

	// TypePostgres uses PostgreSQL through pgx.
	TypePostgres Type = "postgres"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// DestructiveMigration controls whether a schema version change may drop and
// recreate the schema tables, losing their data.
type DestructiveMigration string

const (
	// DestructiveNever never drops data. Upgrades go through GORM AutoMigrate
	// and downgrades fail with ErrSchemaMismatch.
	DestructiveNever DestructiveMigration = "never"

	// DestructiveOnDowngrade drops and recreates the tables when the stored
	// version is newer than the requested one.
	DestructiveOnDowngrade DestructiveMigration = "on_downgrade"

	// DestructiveAlways drops and recreates the tables on any version change.
	DestructiveAlways DestructiveMigration = "always"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:" for a private in-memory database.
	// Default: $XDG_DATA_HOME/ormkit/<name>.db (filled in by pkg/config)
	Path string `mapstructure:"path" yaml:"path"`

	// JournalMode is the SQLite journal mode.
	// Default: WAL (concurrent readers, single writer)
	JournalMode string `mapstructure:"journal_mode" yaml:"journal_mode,omitempty"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout,omitempty"`

	// CacheSize is the page cache size, e.g. "64MiB". Empty keeps the engine default.
	CacheSize string `mapstructure:"cache_size" yaml:"cache_size,omitempty"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	Database        string        `mapstructure:"database" yaml:"database"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode,omitempty" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	SSLRootCert     string        `mapstructure:"sslrootcert" yaml:"sslrootcert,omitempty"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty" validate:"omitempty,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty" validate:"omitempty,min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime,omitempty"`
}

// DSN returns the PostgreSQL connection URL. Credentials and the database
// name are escaped; an empty password is left out.
func (c *PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.SSLRootCert != "" {
		q.Set("sslrootcert", c.SSLRootCert)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Config describes how to open one logical database.
type Config struct {
	// Type selects the backend: sqlite (default) or postgres.
	Type Type `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=sqlite postgres"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`

	// DestructiveMigration selects what happens when the stored schema version
	// differs from the requested one.
	// Default: never
	DestructiveMigration DestructiveMigration `mapstructure:"destructive_migration" yaml:"destructive_migration" validate:"omitempty,oneof=never on_downgrade always"`

	// LogLevel is the verbosity of the ORM query log: silent, error, warn, info.
	// Default: warn
	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty" validate:"omitempty,oneof=silent error warn info"`

	// SlowThreshold logs queries slower than this at WARN. Zero disables it.
	// Default: 200ms
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold,omitempty"`
}

// ApplyDefaults fills in missing configuration with default values.
// The SQLite path has no default here since it depends on the database name.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeSQLite
	}
	if c.DestructiveMigration == "" {
		c.DestructiveMigration = DestructiveNever
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}

	switch c.Type {
	case TypeSQLite:
		if c.SQLite.JournalMode == "" {
			c.SQLite.JournalMode = "WAL"
		}
		if c.SQLite.BusyTimeout == 0 {
			c.SQLite.BusyTimeout = 5 * time.Second
		}
	case TypePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.DestructiveMigration {
	case "", DestructiveNever, DestructiveOnDowngrade, DestructiveAlways:
	default:
		return fmt.Errorf("%w: unknown destructive_migration %q", ErrInvalidConfig, c.DestructiveMigration)
	}

	switch c.Type {
	case TypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
		}
		switch strings.ToUpper(c.SQLite.JournalMode) {
		case "", "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
		default:
			return fmt.Errorf("%w: unknown sqlite journal_mode %q", ErrInvalidConfig, c.SQLite.JournalMode)
		}
		if _, err := c.SQLite.cacheSizeKiB(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case TypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("%w: postgres host is required", ErrInvalidConfig)
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("%w: postgres database is required", ErrInvalidConfig)
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("%w: postgres user is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported database type: %s", ErrInvalidConfig, c.Type)
	}
	return nil
}

// Location returns a human-readable description of where the data lives.
func (c *Config) Location() string {
	switch c.Type {
	case TypePostgres:
		return fmt.Sprintf("%s:%d/%s", c.Postgres.Host, c.Postgres.Port, c.Postgres.Database)
	default:
		return c.SQLite.Path
	}
}

func (c *SQLiteConfig) isMemory() bool {
	return c.Path == MemoryPath
}

// cacheSizeKiB parses CacheSize. Zero means "engine default".
func (c *SQLiteConfig) cacheSizeKiB() (int64, error) {
	if c.CacheSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.CacheSize)
	if err != nil {
		return 0, fmt.Errorf("invalid sqlite cache_size %q: %w", c.CacheSize, err)
	}
	return int64(n / 1024), nil
}

// DSN returns the SQLite data source name with the configured pragmas.
func (c *SQLiteConfig) DSN() string {
	var pragmas []string
	if !c.isMemory() && c.JournalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=journal_mode(%s)", strings.ToUpper(c.JournalMode)))
	}
	if c.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	}
	if kib, _ := c.cacheSizeKiB(); kib > 0 {
		// Negative cache_size is interpreted by SQLite as KiB instead of pages.
		pragmas = append(pragmas, fmt.Sprintf("_pragma=cache_size(-%d)", kib))
	}
	pragmas = append(pragmas, "_pragma=foreign_keys(1)")

	return c.Path + "?" + strings.Join(pragmas, "&")
}

// dialector builds the GORM dialector for the configured backend.
func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Type {
	case TypeSQLite:
		if !c.SQLite.isMemory() {
			if err := os.MkdirAll(filepath.Dir(c.SQLite.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(c.SQLite.DSN()), nil
	case TypePostgres:
		return postgres.Open(c.Postgres.DSN()), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database type: %s", ErrInvalidConfig, c.Type)
	}
}

// configurePool applies connection pool limits to the underlying *sql.DB.
func (c *Config) configurePool(db *sql.DB) {
	switch c.Type {
	case TypeSQLite:
		// Every connection to ":memory:" is a separate database.
		if c.SQLite.isMemory() {
			db.SetMaxOpenConns(1)
		}
	case TypePostgres:
		db.SetMaxOpenConns(c.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(c.Postgres.MaxIdleConns)
		if c.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(c.Postgres.ConnMaxLifetime)
		}
	}
}
