// Package storage holds the schema-level concerns layered on top of the
// elasticsearch client: the model registry, the schema installer, the
// register-lock DAO, and the retention policy.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
)

// Granularity is the time resolution a model is downsampled to. Records
// keep full event resolution; metrics are aggregated per bucket.
type Granularity int

const (
	GranularityRecord Granularity = iota
	GranularityMinute
	GranularityHour
	GranularityDay
	GranularityMonth
	// GranularityNone marks models with no time dimension, such as
	// inventory and lock records. They are never swept by retention.
	GranularityNone
)

func (g Granularity) String() string {
	switch g {
	case GranularityRecord:
		return "record"
	case GranularityMinute:
		return "minute"
	case GranularityHour:
		return "hour"
	case GranularityDay:
		return "day"
	case GranularityMonth:
		return "month"
	case GranularityNone:
		return "none"
	}
	return "unknown"
}

// Model describes one logical index: its name, time resolution, and
// field mappings. Rotating models are installed through a template so
// the physical index can roll over daily; flat models are created once.
type Model struct {
	Name            string
	Granularity     Granularity
	Rotating        bool
	TimeBucketField string
	Mappings        elasticsearch.Mappings
}

// Registry is the inventory of every model the installer, the TTL
// policy, and the DAOs operate on. Registration happens at bootstrap;
// reads are concurrent afterwards.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}

// Register adds a model. Registering the same logical name twice is a
// wiring bug and fails loudly.
func (r *Registry) Register(m Model) error {
	if m.Name == "" {
		return fmt.Errorf("register model: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[m.Name]; exists {
		return fmt.Errorf("register model %q: already registered", m.Name)
	}
	r.models[m.Name] = m
	return nil
}

// Get returns the model for a logical name.
func (r *Registry) Get(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// All returns every registered model, sorted by name for deterministic
// installation and sweep order.
func (r *Registry) All() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// timeBucketMapping is the shared time dimension of telemetry models.
func timeBucketMapping() elasticsearch.Property {
	return elasticsearch.Property{Type: "long"}
}

// DefaultModels returns the built-in model inventory: trace segments at
// record resolution, service metrics at each downsampled granularity,
// the service inventory, and the register lock.
func DefaultModels() []Model {
	metrics := func(name string, g Granularity) Model {
		return Model{
			Name:            name,
			Granularity:     g,
			Rotating:        true,
			TimeBucketField: "time_bucket",
			Mappings: elasticsearch.Mappings{
				Properties: map[string]elasticsearch.Property{
					"service_id":  {Type: "keyword"},
					"value":       {Type: "long"},
					"time_bucket": timeBucketMapping(),
				},
			},
		}
	}

	return []Model{
		{
			Name:            "segment_record",
			Granularity:     GranularityRecord,
			Rotating:        true,
			TimeBucketField: "time_bucket",
			Mappings: elasticsearch.Mappings{
				Properties: map[string]elasticsearch.Property{
					"trace_id":    {Type: "keyword"},
					"service_id":  {Type: "keyword"},
					"endpoint":    {Type: "keyword"},
					"latency":     {Type: "integer"},
					"is_error":    {Type: "boolean"},
					"data_binary": {Type: "binary", Index: boolPtr(false)},
					"time_bucket": timeBucketMapping(),
				},
			},
		},
		metrics("service_metrics_minute", GranularityMinute),
		metrics("service_metrics_hour", GranularityHour),
		metrics("service_metrics_day", GranularityDay),
		metrics("service_metrics_month", GranularityMonth),
		{
			Name:        "service_inventory",
			Granularity: GranularityNone,
			Mappings: elasticsearch.Mappings{
				Properties: map[string]elasticsearch.Property{
					"name":           {Type: "keyword"},
					"sequence":       {Type: "long"},
					"register_time":  {Type: "long"},
					"heartbeat_time": {Type: "long"},
				},
			},
		},
		{
			Name:        RegisterLockIndex,
			Granularity: GranularityNone,
			Mappings:    registerLockMappings(),
		},
	}
}

func boolPtr(b bool) *bool { return &b }
