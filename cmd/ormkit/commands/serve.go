package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/logger"
	"github.com/marmos91/ormkit/internal/telemetry"
	"github.com/marmos91/ormkit/pkg/api"
	"github.com/marmos91/ormkit/pkg/database"
	"github.com/marmos91/ormkit/pkg/metrics"
	"github.com/marmos91/ormkit/pkg/metrics/prometheus"
	"github.com/marmos91/ormkit/pkg/models"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open every database and serve health and metrics over HTTP",
	Long: `Open every configured database, keep the handles open and serve:

  GET /health            liveness
  GET /health/ready      every database open and reachable
  GET /health/databases  per-database status
  GET /metrics           Prometheus metrics (when metrics.enabled is true)

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  ormkit serve
  ORMKIT_METRICS_ENABLED=true ormkit serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ormkit",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is cancelled by then; flushing needs its own deadline.
		flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer flushCancel()
		if err := telemetryShutdown(flushCtx); err != nil {
			logger.Error("Telemetry shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	// Metrics must exist before the manager so that registry metrics attach.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	manager := newManager(cfg)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Error("Failed to close databases", logger.KeyError, err)
		}
	}()

	if err := openAll(ctx, manager); err != nil {
		return err
	}

	server := api.NewServer(cfg.Server, manager)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-server.Ready():
		logger.Info("Server is running. Press Ctrl+C to stop.", "addr", server.Addr())
	case err := <-serverDone:
		return err
	}

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			return err
		}
		cancel()
		<-serverDone
		logger.Info("Server stopped gracefully")
		return nil

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error", logger.KeyError, err)
		}
		return err
	}
}

// openAll opens every database and, with metrics enabled, exports its
// connection pool statistics.
func openAll(ctx context.Context, manager *database.Manager) error {
	if err := manager.OpenAll(ctx, models.AppSchema); err != nil {
		return fmt.Errorf("failed to open databases: %w", err)
	}
	if !metrics.IsEnabled() {
		return nil
	}
	for _, name := range manager.Names() {
		db, err := manager.Get(ctx, name, models.AppSchema)
		if err != nil {
			return err
		}
		if err := prometheus.RegisterDBStats(name, db.SQL()); err != nil {
			return fmt.Errorf("failed to register metrics for %s: %w", name, err)
		}
	}
	return nil
}
