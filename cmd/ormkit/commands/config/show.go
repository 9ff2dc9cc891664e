package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/cli/output"
	"github.com/marmos91/ormkit/pkg/config"
)

var (
	showOutput  string
	showSecrets bool
)

// redacted replaces passwords in 'config show' output.
const redacted = "********"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and ORMKIT_ environment overrides
are applied. Passwords are hidden unless --show-secrets is given.

Examples:
  ormkit config show
  ORMKIT_LOGGING_LEVEL=DEBUG ormkit config show -o json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (json|yaml)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print passwords in clear text")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	// A config has no table form.
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	if !showSecrets {
		for name, db := range cfg.Databases {
			if db.Postgres.Password != "" {
				db.Postgres.Password = redacted
				cfg.Databases[name] = db
			}
		}
	}

	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(cfg)
}
