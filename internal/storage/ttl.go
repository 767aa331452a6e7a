package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonesrussell/telemetry-storage/internal/config"
	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// TTLPolicy enforces per-granularity retention windows by translating
// each window into a time-bucket upper bound and issuing a range delete.
// A sweep is best effort: a failing model is logged and skipped so one
// bad index cannot starve the others.
type TTLPolicy struct {
	client    *elasticsearch.Client
	retention config.RetentionConfig
	log       logger.Logger
	now       func() time.Time
}

func NewTTLPolicy(client *elasticsearch.Client, retention config.RetentionConfig, log logger.Logger) *TTLPolicy {
	return &TTLPolicy{client: client, retention: retention, log: log, now: time.Now}
}

// Sweep deletes expired documents from every time-bucketed model in the
// registry. Models without a time dimension are skipped.
func (p *TTLPolicy) Sweep(ctx context.Context, registry *Registry) {
	now := p.now()
	for _, model := range registry.All() {
		ttlDays, ok := p.ttlDays(model.Granularity)
		if !ok {
			continue
		}

		bound := expiredBucketBound(model.Granularity, now, ttlDays)
		status, err := p.client.DeleteByTimeBucket(ctx, model.Name, model.TimeBucketField, bound)
		if err != nil {
			p.log.Error("retention sweep failed for model",
				logger.String("model", model.Name),
				logger.Error(err),
			)
			continue
		}
		if status < 200 || status >= 300 {
			p.log.Warn("retention sweep rejected by store",
				logger.String("model", model.Name),
				logger.Int("status", status),
			)
			continue
		}
		p.log.Debug("retention sweep completed",
			logger.String("model", model.Name),
			logger.Int64("upper_bound", bound),
		)
	}
}

// RunPeriodic sweeps on the given interval until the context ends. The
// first sweep happens after one interval, not immediately, so startup is
// not serialized behind a full delete pass.
func (p *TTLPolicy) RunPeriodic(ctx context.Context, registry *Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx, registry)
		}
	}
}

func (p *TTLPolicy) ttlDays(g Granularity) (int, bool) {
	switch g {
	case GranularityRecord:
		return p.retention.RecordDataTTL, true
	case GranularityMinute:
		return p.retention.MinuteMetricsDataTTL, true
	case GranularityHour:
		return p.retention.HourMetricsDataTTL, true
	case GranularityDay:
		return p.retention.DayMetricsDataTTL, true
	case GranularityMonth:
		return p.retention.MonthMetricsDataTTL, true
	default:
		return 0, false
	}
}

// expiredBucketBound converts a retention window into the largest
// expired time bucket, encoded in the bucket layout of the granularity.
// Records carry second buckets (yyyyMMddHHmmss), minute metrics
// yyyyMMddHHmm, and so on up to month metrics at yyyyMM.
func expiredBucketBound(g Granularity, now time.Time, ttlDays int) int64 {
	deadline := now.AddDate(0, 0, -ttlDays)

	var layout string
	switch g {
	case GranularityRecord:
		layout = "20060102150405"
	case GranularityMinute:
		layout = "200601021504"
	case GranularityHour:
		layout = "2006010215"
	case GranularityDay:
		layout = "20060102"
	case GranularityMonth:
		layout = "200601"
	default:
		return 0
	}

	bound, err := strconv.ParseInt(deadline.Format(layout), 10, 64)
	if err != nil {
		// Format output is always numeric for these layouts.
		panic(fmt.Sprintf("time bucket bound: %v", err))
	}
	return bound
}
