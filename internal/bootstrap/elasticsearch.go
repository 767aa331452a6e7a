package bootstrap

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/telemetry-storage/internal/config"
	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
	"github.com/jonesrussell/telemetry-storage/internal/storage"
)

// SetupElasticsearch connects to the cluster defined in configuration.
func SetupElasticsearch(ctx context.Context, cfg *config.Config, log logger.Logger) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(ctx, elasticsearch.Config{
		ClusterNodes: cfg.Elasticsearch.ClusterNodes,
		Protocol:     cfg.Elasticsearch.Protocol,
		Username:     cfg.Elasticsearch.Username,
		Password:     cfg.Elasticsearch.Password,
		Namespace:    cfg.Elasticsearch.Namespace,
		PingTimeout:  cfg.Elasticsearch.PingTimeout,
	}, log)
}

// InstallSchema registers the built-in models, installs missing
// templates and indices, and seeds the register lock.
func InstallSchema(ctx context.Context, client *elasticsearch.Client, cfg *config.Config, log logger.Logger) (*storage.Registry, error) {
	registry := storage.NewRegistry()
	for _, model := range storage.DefaultModels() {
		if err := registry.Register(model); err != nil {
			return nil, err
		}
	}

	installer := storage.NewInstaller(client, cfg.Schema, log)
	if err := installer.Install(ctx, registry); err != nil {
		return nil, err
	}

	locks := storage.NewRegisterLockDAO(client, log)
	for _, scope := range []string{"service", "endpoint", "instance"} {
		if err := locks.Init(ctx, scope); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// SetupBulkPipeline starts the asynchronous write pipeline with its
// metrics registered on the given registry.
func SetupBulkPipeline(client *elasticsearch.Client, cfg *config.Config, log logger.Logger, reg *prometheus.Registry) *elasticsearch.BulkProcessor {
	metrics := elasticsearch.NewBulkMetrics(reg)
	return elasticsearch.NewBulkProcessor(client, elasticsearch.BulkConfig{
		Actions:            cfg.Elasticsearch.BulkActions,
		FlushInterval:      cfg.Elasticsearch.FlushInterval,
		ConcurrentRequests: cfg.Elasticsearch.ConcurrentRequests,
	}, log, metrics)
}
