package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/ormkit/pkg/api"
	"github.com/marmos91/ormkit/pkg/database"
)

func TestGetDefaultConfig(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataDir)

	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Expected telemetry disabled by default")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected endpoint localhost:4317, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}

	db, ok := cfg.Databases[DefaultDatabaseName]
	if !ok {
		t.Fatalf("Expected %s in default config", DefaultDatabaseName)
	}
	want := filepath.Join(dataDir, "ormkit", "user_db.db")
	if db.SQLite.Path != want {
		t.Errorf("Expected sqlite path %s, got %s", want, db.SQLite.Path)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "error", Format: "json", Output: "stdout"},
		Server:          api.APIConfig{Port: 9000},
		ShutdownTimeout: time.Second,
		Databases: map[string]database.Config{
			"user_db": {SQLite: database.SQLiteConfig{Path: "/srv/user.db"}},
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "ERROR" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stdout" {
		t.Errorf("Logging values not preserved: %+v", cfg.Logging)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("Expected idle timeout 60s, got %v", cfg.Server.IdleTimeout)
	}
	if cfg.ShutdownTimeout != time.Second {
		t.Errorf("Expected shutdown timeout 1s, got %v", cfg.ShutdownTimeout)
	}
	if got := cfg.Databases["user_db"].SQLite.Path; got != "/srv/user.db" {
		t.Errorf("Expected explicit sqlite path preserved, got %s", got)
	}
}

func TestDatabaseNames(t *testing.T) {
	cfg := &Config{Databases: map[string]database.Config{"b": {}, "a": {}, "c": {}}}

	names := cfg.DatabaseNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("Expected sorted names [a b c], got %v", names)
	}
}
