package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/cli/output"
	"github.com/marmos91/ormkit/internal/logger"
	"github.com/marmos91/ormkit/pkg/config"
	"github.com/marmos91/ormkit/pkg/database"
	"github.com/marmos91/ormkit/pkg/metrics/prometheus"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads the configuration named by --config and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newManager creates a Manager for every configured database. Registry
// metrics are attached when metrics were initialized beforehand.
func newManager(cfg *config.Config) *database.Manager {
	return database.NewManager(cfg.Databases, database.WithMetrics(prometheus.NewRegistryMetrics()))
}

// newPrinter returns a printer writing to the command's stdout.
func newPrinter(cmd *cobra.Command, format string) (*output.Printer, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), f, !noColor), nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
