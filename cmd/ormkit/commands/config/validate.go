package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/cli/output"
	"github.com/marmos91/ormkit/pkg/config"
	"github.com/marmos91/ormkit/pkg/database"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the ormkit configuration file.

Checks for syntax errors, missing required fields, and invalid values.
Databases are not opened.

Examples:
  # Validate default config
  ormkit config validate

  # Validate specific config file
  ormkit config validate --config /etc/ormkit/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	for _, name := range cfg.DatabaseNames() {
		db := cfg.Databases[name]
		if db.DestructiveMigration == database.DestructiveAlways {
			warnings = append(warnings, fmt.Sprintf("%s: destructive_migration=always drops all rows on every schema version change", name))
		}
		if db.Type == database.TypeSQLite && db.SQLite.Path == database.MemoryPath {
			warnings = append(warnings, fmt.Sprintf("%s: in-memory database, data is lost when the process exits", name))
		}
		if db.Type == database.TypePostgres && db.Postgres.SSLMode == "disable" && db.Postgres.Host != "localhost" && db.Postgres.Host != "127.0.0.1" {
			warnings = append(warnings, fmt.Sprintf("%s: TLS disabled for remote host %s", name, db.Postgres.Host))
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nDatabases:")
	table := output.NewTableData("Name", "Type", "Location", "Destructive")
	for _, name := range cfg.DatabaseNames() {
		db := cfg.Databases[name]
		table.AddRow(name, string(db.Type), db.Location(), string(db.DestructiveMigration))
	}
	return output.PrintTable(out, table)
}
