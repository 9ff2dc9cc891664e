package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ormkit/pkg/config"
	"github.com/marmos91/ormkit/pkg/database"
	"github.com/marmos91/ormkit/pkg/models"
)

// execute runs the root command with args and returns what it printed.
// Flag variables are reset first since cobra keeps them between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, noColor = "", false
	initForce, initInteractive = false, false
	statusOutput = "table"
	resetForce = false
	demoDatabase, demoOutput = config.DefaultDatabaseName, "table"
	versionShort = false
	servePort = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// initConfig writes a default config under a temp dir and returns its path.
func initConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "Configuration file created at: "+path)
	return path
}

func demoUsers(t *testing.T, path string) []models.User {
	t.Helper()
	out, err := execute(t, "demo", "--config", path, "-o", "json")
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	return users
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ormkit "+Version)
	assert.Contains(t, out, "Go version")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := initConfig(t)

	_, err := execute(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestMigrateAndStatus(t *testing.T) {
	path := initConfig(t)

	out, err := execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "user_db")

	out, err = execute(t, "migrate", "--config", path, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "user_db: schema version 1")

	out, err = execute(t, "status", "--config", path, "-o", "json")
	require.NoError(t, err)

	var statuses []database.Status
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "user_db", statuses[0].Name)
	assert.Equal(t, database.TypeSQLite, statuses[0].Type)
	assert.True(t, statuses[0].Open)
	assert.True(t, statuses[0].Healthy)
	assert.Equal(t, models.SchemaVersion, statuses[0].Version)

	out, err = execute(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "user_db")
}

func TestStatus_InvalidOutput(t *testing.T) {
	path := initConfig(t)

	_, err := execute(t, "status", "--config", path, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestStatus_MissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := execute(t, "status", "--config", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ormkit init --config "+missing)
}

func TestDemo_AccumulatesOneUserPerRun(t *testing.T) {
	path := initConfig(t)

	first := demoUsers(t, path)
	require.Len(t, first, 1)
	assert.Equal(t, "Demo User", first[0].Name)
	assert.Equal(t, 31, first[0].Age)

	second := demoUsers(t, path)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestReset(t *testing.T) {
	path := initConfig(t)

	demoUsers(t, path)
	demoUsers(t, path)

	out, err := execute(t, "reset", "user_db", "--config", path, "--force", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "user_db reset to schema version 1")

	assert.Len(t, demoUsers(t, path), 1)
}

func TestReset_UnknownDatabase(t *testing.T) {
	path := initConfig(t)

	_, err := execute(t, "reset", "audit_db", "--config", path, "--force")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `database "audit_db" is not configured`)
}

func TestReset_RequiresName(t *testing.T) {
	path := initConfig(t)

	_, err := execute(t, "reset", "--config", path, "--force")
	assert.Error(t, err)
}

func TestConfigShow_RedactsPasswords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
databases:
  audit_db:
    type: postgres
    postgres:
      host: localhost
      database: audit
      user: ormkit
      password: hunter2
`), 0600))

	out, err := execute(t, "config", "show", "--config", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "audit_db:")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigSchema(t *testing.T) {
	out, err := execute(t, "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "ormkit Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "telemetry", "metrics", "server", "shutdown_timeout", "databases"} {
		assert.Contains(t, props, key)
	}
	assert.False(t, strings.Contains(out, `"Logging"`))
}
