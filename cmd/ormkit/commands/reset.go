package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/cli/prompt"
	"github.com/marmos91/ormkit/pkg/models"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset <name>",
	Short: "Drop and recreate every table of a database",
	Long: `Drop and recreate every table of the named database. All rows are lost.

You are asked to type the database name unless --force is given.

Examples:
  ormkit reset user_db
  ormkit reset user_db --force`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.Databases[name]; !ok {
		return fmt.Errorf("database %q is not configured (configured: %v)", name, cfg.DatabaseNames())
	}

	if !resetForce {
		ok, err := prompt.ConfirmDanger(fmt.Sprintf("Reset %s? All rows will be lost", name), name)
		if err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				return errors.New("reset aborted")
			}
			return err
		}
		if !ok {
			return errors.New("reset cancelled")
		}
	}

	ctx := context.Background()
	manager := newManager(cfg)
	defer func() { _ = manager.Close() }()

	db, err := manager.Get(ctx, name, models.AppSchema)
	if err != nil {
		return err
	}
	if err := db.Reset(ctx); err != nil {
		return fmt.Errorf("reset %s: %w", name, err)
	}

	p, err := newPrinter(cmd, "table")
	if err != nil {
		return err
	}
	p.Success(fmt.Sprintf("%s reset to schema version %d", name, db.Version()))
	return nil
}
