package bootstrap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
)

func TestPipelineHealth_CleanPipeline(t *testing.T) {
	health := &pipelineHealth{}
	assert.NoError(t, health.RecentFailure())

	health.record(elasticsearch.Report{ExecutionID: "ok", Operations: 10})
	assert.NoError(t, health.RecentFailure(), "successful reports must not degrade health")
}

func TestPipelineHealth_TerminalFailureDegrades(t *testing.T) {
	health := &pipelineHealth{}
	flushErr := errors.New("bulk submit: status 503")
	health.record(elasticsearch.Report{ExecutionID: "bad", Operations: 10, Err: flushErr})

	err := health.RecentFailure()
	require.Error(t, err)
	assert.Equal(t, flushErr, err)
}

func TestPipelineHealth_FailureWindowExpires(t *testing.T) {
	health := &pipelineHealth{}
	health.record(elasticsearch.Report{Err: errors.New("bulk submit: status 503")})

	// Age the failure past the window.
	health.mu.Lock()
	health.lastFailure = time.Now().Add(-terminalFailureWindow - time.Minute)
	health.mu.Unlock()

	assert.NoError(t, health.RecentFailure())
}

func TestBulkPipelineChecker(t *testing.T) {
	health := &pipelineHealth{}

	result := bulkPipelineChecker(health)()
	assert.Equal(t, "healthy", string(result.Status))

	health.record(elasticsearch.Report{Err: errors.New("bulk submit: status 503")})
	result = bulkPipelineChecker(health)()
	assert.Equal(t, "degraded", string(result.Status))
	assert.Contains(t, result.Message, "status 503")
}
