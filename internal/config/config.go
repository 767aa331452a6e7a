package config

import (
	"time"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// Default configuration values.
const (
	defaultServiceName    = "telemetry-storage"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8095

	defaultClusterNodes   = "localhost:9200"
	defaultProtocol       = "http"
	defaultPingTimeout    = 5 * time.Second
	defaultBulkActions    = 2000
	defaultFlushInterval  = 10 * time.Second
	defaultConcurrentReqs = 2

	defaultIndexShards          = 2
	defaultIndexReplicas        = 0
	defaultIndexRefreshInterval = 3

	defaultRecordTTLDays        = 7
	defaultMinuteMetricsTTLDays = 2
	defaultHourMetricsTTLDays   = 4
	defaultDayMetricsTTLDays    = 7
	defaultMonthMetricsTTLDays  = 31
)

// Config holds the daemon configuration.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Schema        SchemaConfig        `yaml:"schema"`
	Retention     RetentionConfig     `yaml:"retention"`
	Logging       logger.Config       `yaml:"logging"`
}

// ServiceConfig holds service identity and HTTP surface configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"STORAGE_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"    yaml:"debug"`
}

// ElasticsearchConfig holds cluster connection and write pipeline settings.
type ElasticsearchConfig struct {
	// ClusterNodes is a comma-separated host:port list, e.g.
	// "es-1:9200,es-2:9200".
	ClusterNodes string `env:"ES_CLUSTER_NODES" yaml:"cluster_nodes"`
	// Protocol is http or https.
	Protocol string `env:"ES_PROTOCOL" yaml:"protocol"`
	Username string `env:"ES_USERNAME" yaml:"username"`
	Password string `env:"ES_PASSWORD" yaml:"password"`
	// Namespace prefixes every physical index name, isolating tenants or
	// environments sharing one cluster. Lower-cased at load time.
	Namespace string `env:"ES_NAMESPACE" yaml:"namespace"`

	PingTimeout time.Duration `yaml:"ping_timeout"`

	// BulkActions is the operation count that triggers a bulk flush.
	BulkActions int `env:"ES_BULK_ACTIONS" yaml:"bulk_actions"`
	// FlushInterval flushes a partially filled batch after this long.
	FlushInterval time.Duration `env:"ES_FLUSH_INTERVAL" yaml:"flush_interval"`
	// ConcurrentRequests bounds in-flight bulk submissions.
	ConcurrentRequests int `env:"ES_CONCURRENT_REQUESTS" yaml:"concurrent_requests"`
}

// SchemaConfig holds index settings applied at administrative setup.
type SchemaConfig struct {
	IndexShardsNumber   int `yaml:"index_shards_number"`
	IndexReplicasNumber int `yaml:"index_replicas_number"`
	// IndexRefreshInterval is in seconds, applied as the index-level
	// refresh_interval setting.
	IndexRefreshInterval int `yaml:"index_refresh_interval"`
}

// RetentionConfig holds per-granularity retention windows, as a maximum
// age in days. Translated by the TTL policy into range deletes.
type RetentionConfig struct {
	RecordDataTTL        int `yaml:"record_data_ttl"`
	MinuteMetricsDataTTL int `yaml:"minute_metrics_data_ttl"`
	HourMetricsDataTTL   int `yaml:"hour_metrics_data_ttl"`
	DayMetricsDataTTL    int `yaml:"day_metrics_data_ttl"`
	MonthMetricsDataTTL  int `yaml:"month_metrics_data_ttl"`
}

// Load loads configuration from a YAML file, applies defaults, then
// re-applies env overrides so the environment always wins.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setSchemaDefaults(&cfg.Schema)
	setRetentionDefaults(&cfg.Retention)
	cfg.Logging.SetDefaults()
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	if e.ClusterNodes == "" {
		e.ClusterNodes = defaultClusterNodes
	}
	if e.Protocol == "" {
		e.Protocol = defaultProtocol
	}
	if e.PingTimeout == 0 {
		e.PingTimeout = defaultPingTimeout
	}
	if e.BulkActions == 0 {
		e.BulkActions = defaultBulkActions
	}
	if e.FlushInterval == 0 {
		e.FlushInterval = defaultFlushInterval
	}
	if e.ConcurrentRequests == 0 {
		e.ConcurrentRequests = defaultConcurrentReqs
	}
}

func setSchemaDefaults(s *SchemaConfig) {
	if s.IndexShardsNumber == 0 {
		s.IndexShardsNumber = defaultIndexShards
	}
	if s.IndexReplicasNumber == 0 {
		s.IndexReplicasNumber = defaultIndexReplicas
	}
	if s.IndexRefreshInterval == 0 {
		s.IndexRefreshInterval = defaultIndexRefreshInterval
	}
}

func setRetentionDefaults(r *RetentionConfig) {
	if r.RecordDataTTL == 0 {
		r.RecordDataTTL = defaultRecordTTLDays
	}
	if r.MinuteMetricsDataTTL == 0 {
		r.MinuteMetricsDataTTL = defaultMinuteMetricsTTLDays
	}
	if r.HourMetricsDataTTL == 0 {
		r.HourMetricsDataTTL = defaultHourMetricsTTLDays
	}
	if r.DayMetricsDataTTL == 0 {
		r.DayMetricsDataTTL = defaultDayMetricsTTLDays
	}
	if r.MonthMetricsDataTTL == 0 {
		r.MonthMetricsDataTTL = defaultMonthMetricsTTLDays
	}
}
