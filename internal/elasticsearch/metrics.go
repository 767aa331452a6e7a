package elasticsearch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the namespace for all storage client metrics.
	MetricsNamespace = "telemetry_storage"

	// MetricsSubsystem is the subsystem for bulk pipeline metrics.
	MetricsSubsystem = "bulk"
)

// BulkMetrics holds the Prometheus metrics of the bulk write pipeline.
type BulkMetrics struct {
	OperationsEnqueued prometheus.Counter
	FlushesTotal       *prometheus.CounterVec
	FlushDuration      prometheus.Histogram
	RetriesTotal       prometheus.Counter
	DocumentsFailed    prometheus.Counter
	DocumentsDropped   prometheus.Counter
	InFlightFlushes    prometheus.Gauge
}

// NewBulkMetrics creates and registers the bulk pipeline metrics.
func NewBulkMetrics(reg prometheus.Registerer) *BulkMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &BulkMetrics{
		OperationsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "operations_enqueued_total",
			Help:      "Write operations accepted into the bulk pipeline.",
		}),
		FlushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "flushes_total",
			Help:      "Bulk flushes by terminal result.",
		}, []string{"result"}),
		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "flush_duration_seconds",
			Help:      "Wall time of bulk flushes, including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "retries_total",
			Help:      "Bulk submissions retried after a transport failure.",
		}),
		DocumentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "documents_failed_total",
			Help:      "Documents rejected by the store inside otherwise successful flushes.",
		}),
		DocumentsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "documents_dropped_total",
			Help:      "Documents dropped after a flush exhausted its retries.",
		}),
		InFlightFlushes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "in_flight_flushes",
			Help:      "Bulk submissions currently awaiting a response.",
		}),
	}
}
