package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/logger"
	"github.com/marmos91/ormkit/pkg/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or migrate every configured database",
	Long: `Open every configured database with the application schema.

Opening a database creates missing tables, applies additive changes when the
schema version went up and records the version. What happens on a version
change is controlled per database by destructive_migration.

Examples:
  # Migrate databases from the default config
  ormkit migrate

  # Migrate with a custom config
  ormkit migrate --config /etc/ormkit/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	manager := newManager(cfg)
	defer func() { _ = manager.Close() }()

	logger.Info("Running database migrations",
		"databases", len(cfg.Databases),
		logger.KeyVersion, models.SchemaVersion)

	p, err := newPrinter(cmd, "table")
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range manager.Names() {
		if _, err := manager.Get(ctx, name, models.AppSchema); err != nil {
			failed++
			p.Error(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		p.Success(fmt.Sprintf("%s: schema version %d", name, models.SchemaVersion))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d databases failed to migrate", failed, len(cfg.Databases))
	}
	return nil
}
