package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/cli/prompt"
	"github.com/marmos91/ormkit/pkg/config"
	"github.com/marmos91/ormkit/pkg/database"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize an ormkit configuration file with one SQLite database named user_db.

By default, the configuration file is created at $XDG_CONFIG_HOME/ormkit/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  ormkit init

  # Choose the database name, backend and migration policy interactively
  ormkit init --interactive

  # Force overwrite existing config
  ormkit init --config /etc/ormkit/config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the database settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.GetDefaultConfig()

	if initInteractive {
		name, db, err := promptDatabase()
		if err != nil {
			if prompt.IsAborted(err) {
				return errors.New("init aborted")
			}
			return err
		}
		cfg.Databases = map[string]database.Config{name: db}
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	configPath, err := config.InitConfig(cfg, GetConfigFile(), initForce)
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to add or change databases")
	_, _ = fmt.Fprintln(out, "  2. Create the tables with: ormkit migrate")
	_, _ = fmt.Fprintln(out, "  3. Check them with:        ormkit status")
	return nil
}

// promptDatabase asks for one database definition.
func promptDatabase() (string, database.Config, error) {
	var db database.Config

	name, err := prompt.InputWithValidation("Database name", config.DefaultDatabaseName, config.ValidateDatabaseName)
	if err != nil {
		return "", db, err
	}

	kind, err := prompt.Select("Backend", []prompt.SelectOption{
		{Label: "SQLite", Value: string(database.TypeSQLite), Description: "Single file, no server required"},
		{Label: "PostgreSQL", Value: string(database.TypePostgres), Description: "Connect to a running PostgreSQL server"},
	})
	if err != nil {
		return "", db, err
	}
	db.Type = database.Type(kind)

	switch db.Type {
	case database.TypeSQLite:
		defaultPath := filepath.Join(config.GetDataDir(), name+".db")
		if db.SQLite.Path, err = prompt.Input("Database file", defaultPath); err != nil {
			return "", db, err
		}
	case database.TypePostgres:
		if db.Postgres.Host, err = prompt.Input("Host", "localhost"); err != nil {
			return "", db, err
		}
		if db.Postgres.Port, err = prompt.InputPort("Port", 5432); err != nil {
			return "", db, err
		}
		if db.Postgres.Database, err = prompt.Input("Database", name); err != nil {
			return "", db, err
		}
		if db.Postgres.User, err = prompt.Input("User", "ormkit"); err != nil {
			return "", db, err
		}
		if db.Postgres.Password, err = prompt.Password("Password"); err != nil {
			return "", db, err
		}
	}

	policy, err := prompt.Select("Destructive migration", []prompt.SelectOption{
		{Label: "never", Value: string(database.DestructiveNever), Description: "Never drop tables; a downgrade fails"},
		{Label: "on_downgrade", Value: string(database.DestructiveOnDowngrade), Description: "Drop and recreate tables when the stored version is newer"},
		{Label: "always", Value: string(database.DestructiveAlways), Description: "Drop and recreate tables on any version change"},
	})
	if err != nil {
		return "", db, err
	}
	db.DestructiveMigration = database.DestructiveMigration(policy)

	return name, db, nil
}
