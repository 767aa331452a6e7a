// Package bootstrap handles daemon initialization and lifecycle: config,
// logger, store connection, schema installation, the bulk pipeline, the
// retention sweeper, and the operational HTTP server, in that order.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonesrussell/telemetry-storage/internal/config"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
	"github.com/jonesrussell/telemetry-storage/internal/storage"
)

const retentionSweepInterval = 5 * time.Minute

// Start initializes and runs the storage daemon until shutdown.
func Start() error {
	ctx := context.Background()

	// Phase 1: config and logger.
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Telemetry Storage Daemon",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	// Phase 2: store connection.
	client, err := SetupElasticsearch(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setup elasticsearch: %w", err)
	}
	defer client.Close()

	// Phase 3: schema installation and lock seeding.
	registry, err := InstallSchema(ctx, client, cfg, log)
	if err != nil {
		return fmt.Errorf("install schema: %w", err)
	}

	// Phase 4: bulk pipeline with its observer.
	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(collectors.NewGoCollector())

	processor := SetupBulkPipeline(client, cfg, log, metricsRegistry)
	pipeline := watchBulkReports(processor, log)

	// Phase 5: retention sweeper.
	retention := storage.NewTTLPolicy(client, cfg.Retention, log)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go retention.RunPeriodic(sweepCtx, registry, retentionSweepInterval)

	// Phase 6: operational HTTP server, blocking until shutdown.
	server := SetupHTTPServer(cfg, client, pipeline, metricsRegistry, log)
	if runErr := server.RunWithGracefulShutdown(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	// Drain the write pipeline before the process exits.
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := processor.Shutdown(shutdownCtx); err != nil {
		log.Error("Bulk pipeline shutdown incomplete", logger.Error(err))
		return fmt.Errorf("bulk pipeline shutdown: %w", err)
	}

	log.Info("Telemetry Storage Daemon stopped")
	return nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Service.Debug,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, err
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}
