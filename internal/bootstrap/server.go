package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/telemetry-storage/internal/api"
	"github.com/jonesrussell/telemetry-storage/internal/config"
	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

const healthPingTimeout = 3 * time.Second

// SetupHTTPServer builds the operational HTTP server: health probes
// backed by a live store ping and the pipeline failure window, plus the
// Prometheus metrics endpoint.
func SetupHTTPServer(
	cfg *config.Config,
	client *elasticsearch.Client,
	pipeline *pipelineHealth,
	metricsRegistry *prometheus.Registry,
	log logger.Logger,
) *api.Server {
	return api.NewServer(api.ServerConfig{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	}, log, func(router *gin.Engine) {
		api.RegisterHealthRoutes(router, api.HealthOptions{
			ServiceName:    cfg.Service.Name,
			ServiceVersion: cfg.Service.Version,
			Checks: map[string]api.HealthChecker{
				"elasticsearch": api.StoreHealthChecker(func() error {
					ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
					defer cancel()
					return client.Ping(ctx)
				}),
				"bulk_pipeline": bulkPipelineChecker(pipeline),
			},
		})
		api.RegisterMetricsRoute(router, metricsRegistry)
	})
}

// bulkPipelineChecker reports degraded while a terminal bulk failure is
// inside the failure window. Degraded, not unhealthy: the daemon can
// still serve reads and synchronous writes.
func bulkPipelineChecker(pipeline *pipelineHealth) api.HealthChecker {
	return func() api.CheckResult {
		if err := pipeline.RecentFailure(); err != nil {
			return api.CheckResult{
				Status:  api.HealthStatusDegraded,
				Message: "recent bulk flush failure: " + err.Error(),
			}
		}
		return api.CheckResult{
			Status:  api.HealthStatusHealthy,
			Message: "bulk pipeline flushing",
		}
	}
}
