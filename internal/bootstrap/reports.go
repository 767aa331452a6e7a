package bootstrap

import (
	"sync"
	"time"

	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// terminalFailureWindow is how long a terminal bulk failure keeps the
// pipeline health check degraded.
const terminalFailureWindow = 5 * time.Minute

// pipelineHealth tracks the most recent terminal bulk failure for the
// health endpoint.
type pipelineHealth struct {
	mu          sync.Mutex
	lastFailure time.Time
	lastErr     error
}

func (h *pipelineHealth) record(report elasticsearch.Report) {
	if report.Err == nil {
		return
	}
	h.mu.Lock()
	h.lastFailure = time.Now()
	h.lastErr = report.Err
	h.mu.Unlock()
}

// RecentFailure returns the last terminal failure inside the window,
// or nil when the pipeline is flushing cleanly.
func (h *pipelineHealth) RecentFailure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastErr == nil || time.Since(h.lastFailure) > terminalFailureWindow {
		return nil
	}
	return h.lastErr
}

// watchBulkReports consumes the pipeline's observer channel, keeping it
// drained and feeding the health state. The goroutine ends when the
// processor shuts down and closes the channel.
func watchBulkReports(processor *elasticsearch.BulkProcessor, log logger.Logger) *pipelineHealth {
	health := &pipelineHealth{}
	go func() {
		for report := range processor.Reports() {
			health.record(report)
			if len(report.Failed) > 0 {
				for _, failure := range report.Failed {
					log.Warn("document rejected by store",
						logger.String("execution_id", report.ExecutionID),
						logger.String("index", failure.Index),
						logger.String("id", failure.ID),
						logger.Int("status", failure.Status),
						logger.String("reason", failure.Reason),
					)
				}
			}
		}
	}()
	return health
}
