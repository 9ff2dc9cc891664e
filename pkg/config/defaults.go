package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/ormkit/pkg/api"
	"github.com/marmos91/ormkit/pkg/database"
)

// DefaultDatabaseName is the database created by GetDefaultConfig and 'ormkit init'.
const DefaultDatabaseName = "user_db"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyShutdownTimeoutDefaults(cfg)
	applyDatabaseDefaults(cfg.Databases)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output (status tables, JSON).
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyServerDefaults sets HTTP server defaults.
func applyServerDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	cfg.ApplyDefaults()
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDatabaseDefaults applies per-database defaults. SQLite databases
// without a path get <data dir>/<name>.db.
func applyDatabaseDefaults(dbs map[string]database.Config) {
	for name, db := range dbs {
		db.ApplyDefaults()
		if db.Type == database.TypeSQLite && db.SQLite.Path == "" {
			db.SQLite.Path = filepath.Join(getDataDir(), name+".db")
		}
		dbs[name] = db
	}
}

// GetDefaultConfig returns a Config with one SQLite database and all default
// values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Databases: map[string]database.Config{
			DefaultDatabaseName: {Type: database.TypeSQLite},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
