package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
	"github.com/jonesrussell/telemetry-storage/internal/retry"
)

// OpKind tags a bulk operation.
type OpKind int

const (
	// OpInsert indexes a new document.
	OpInsert OpKind = iota
	// OpUpdate applies a partial document update.
	OpUpdate
)

// Operation is one queued write. It is immutable after enqueue: the index
// name is already physical and the source is marshalled up front.
type Operation struct {
	Kind  OpKind
	Index string
	ID    string
	doc   json.RawMessage
}

// Report is the per-batch outcome published on the observer channel.
// Exactly one report is published per flushed batch.
type Report struct {
	// ExecutionID identifies the batch across log lines and reports.
	ExecutionID string
	// Operations is the batch size.
	Operations int
	// Attempts is how many submissions were made, including the first.
	Attempts int
	// Took is the wall time of the flush, including backoff waits.
	Took time.Duration
	// Err is non-nil when the batch failed terminally; its documents
	// were dropped, not requeued.
	Err error
	// Failed lists documents the store rejected inside a successful
	// submission. A partially failed batch still counts as flushed.
	Failed []ItemFailure
}

// ItemFailure describes one rejected document of a bulk response.
type ItemFailure struct {
	Index  string
	ID     string
	Status int
	Reason string
}

// BulkConfig configures the write pipeline.
type BulkConfig struct {
	// Actions is the operation count that triggers a flush.
	Actions int
	// FlushInterval flushes a partially filled batch after this long.
	// The countdown restarts whenever a batch closes.
	FlushInterval time.Duration
	// ConcurrentRequests bounds parallel in-flight submissions; it is
	// also the worker pool size.
	ConcurrentRequests int
	// RetryInitialDelay is the first backoff delay after a transport
	// failure. Subsequent delays double.
	RetryInitialDelay time.Duration
	// MaxRetries is how many times a failed submission is retried
	// before the batch goes terminal.
	MaxRetries int
}

// SetDefaults applies default values to the config if not set.
func (c *BulkConfig) SetDefaults() {
	if c.Actions <= 0 {
		c.Actions = 2000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 10 * time.Second
	}
	if c.ConcurrentRequests <= 0 {
		c.ConcurrentRequests = 2
	}
	if c.RetryInitialDelay <= 0 {
		c.RetryInitialDelay = 100 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}

// BulkProcessor batches write operations into bulk requests and flushes
// them asynchronously. Callers enqueue and return; flush execution,
// backoff waits, and outcome reporting happen on the worker pool. The
// pipeline is fire-and-forget: a terminally failed batch surfaces through
// the Reports channel and metrics, never as an error to the caller that
// enqueued it.
type BulkProcessor struct {
	client  *Client
	cfg     BulkConfig
	log     logger.Logger
	metrics *BulkMetrics

	ops     chan Operation
	batches chan []Operation
	reports chan Report

	collectorDone chan struct{}
	workers       sync.WaitGroup
	closeOnce     sync.Once
}

// NewBulkProcessor starts the pipeline: one collector goroutine grouping
// operations into batches, and ConcurrentRequests workers flushing them.
func NewBulkProcessor(client *Client, cfg BulkConfig, log logger.Logger, metrics *BulkMetrics) *BulkProcessor {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	p := &BulkProcessor{
		client:  client,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		// The queue bounds memory between caller and collector; two
		// batches of headroom keeps enqueue from stalling during a flush.
		ops:           make(chan Operation, cfg.Actions*2),
		batches:       make(chan []Operation, cfg.ConcurrentRequests),
		reports:       make(chan Report, cfg.ConcurrentRequests*4),
		collectorDone: make(chan struct{}),
	}

	go p.collect()
	p.workers.Add(cfg.ConcurrentRequests)
	for i := 0; i < cfg.ConcurrentRequests; i++ {
		go p.worker()
	}
	return p
}

// Insert enqueues an index operation. The logical index name is resolved
// here, once. Returns an error only when the source cannot be marshalled;
// it never waits on network I/O.
func (p *BulkProcessor) Insert(logicalName, id string, source map[string]any) error {
	return p.enqueue(OpInsert, logicalName, id, source)
}

// Update enqueues a partial-document update. Same contract as Insert.
func (p *BulkProcessor) Update(logicalName, id string, source map[string]any) error {
	return p.enqueue(OpUpdate, logicalName, id, source)
}

func (p *BulkProcessor) enqueue(kind OpKind, logicalName, id string, source map[string]any) error {
	raw, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("enqueue %s/%s: %w", logicalName, id, err)
	}
	p.ops <- Operation{
		Kind:  kind,
		Index: p.client.ns.Resolve(logicalName),
		ID:    id,
		doc:   raw,
	}
	if p.metrics != nil {
		p.metrics.OperationsEnqueued.Inc()
	}
	return nil
}

// Reports returns the observer channel. Logging and metrics consumers
// subscribe here. The channel is buffered; when no consumer drains it,
// the oldest headroom is spent and further reports are dropped rather
// than stalling the workers.
func (p *BulkProcessor) Reports() <-chan Report {
	return p.reports
}

// Shutdown flushes the open batch, waits for in-flight submissions, and
// closes the reports channel. Safe to call once; enqueueing after
// Shutdown panics by design of channel close semantics.
func (p *BulkProcessor) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		close(p.ops)
	})

	done := make(chan struct{})
	go func() {
		<-p.collectorDone
		p.workers.Wait()
		close(p.reports)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("bulk processor shutdown: %w", ctx.Err())
	}
}

// collect groups operations into batches. A batch closes when it reaches
// the action threshold or when the flush interval elapses with pending
// operations; the interval countdown restarts at every batch close.
func (p *BulkProcessor) collect() {
	defer close(p.collectorDone)

	batch := make([]Operation, 0, p.cfg.Actions)
	timer := time.NewTimer(p.cfg.FlushInterval)
	defer timer.Stop()

	dispatch := func() {
		if len(batch) == 0 {
			return
		}
		p.batches <- batch
		batch = make([]Operation, 0, p.cfg.Actions)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.cfg.FlushInterval)
	}

	for {
		select {
		case op, ok := <-p.ops:
			if !ok {
				dispatch()
				close(p.batches)
				return
			}
			batch = append(batch, op)
			if len(batch) >= p.cfg.Actions {
				dispatch()
			}
		case <-timer.C:
			if len(batch) > 0 {
				dispatch()
			} else {
				timer.Reset(p.cfg.FlushInterval)
			}
		}
	}
}

func (p *BulkProcessor) worker() {
	defer p.workers.Done()
	for batch := range p.batches {
		report := p.flush(batch)
		p.observe(report)
	}
}

// flush submits one batch, retrying transport failures with doubling
// backoff. The batch is immutable once flushing begins: the request body
// is rendered exactly once and resubmitted as-is on retry.
func (p *BulkProcessor) flush(batch []Operation) Report {
	report := Report{
		ExecutionID: uuid.NewString(),
		Operations:  len(batch),
	}

	body, err := encodeBulkBody(batch)
	if err != nil {
		// Unreachable for operations that marshalled at enqueue, kept as
		// a terminal outcome rather than a panic.
		report.Err = err
		return report
	}

	if p.metrics != nil {
		p.metrics.InFlightFlushes.Inc()
		defer p.metrics.InFlightFlushes.Dec()
	}

	start := time.Now()
	var failed []ItemFailure

	retryCfg := retry.Config{
		MaxAttempts:  p.cfg.MaxRetries + 1,
		InitialDelay: p.cfg.RetryInitialDelay,
		MaxDelay:     p.cfg.FlushInterval,
		Multiplier:   2.0,
	}
	err = retry.Retry(context.Background(), retryCfg, func() error {
		report.Attempts++
		if report.Attempts > 1 && p.metrics != nil {
			p.metrics.RetriesTotal.Inc()
		}
		var submitErr error
		failed, submitErr = p.submit(body)
		return submitErr
	})

	report.Took = time.Since(start)
	report.Err = err
	report.Failed = failed
	return report
}

// submit performs one bulk request. A transport error or an error-level
// response fails the whole submission; per-document rejections inside a
// 2xx response are returned as item failures.
func (p *BulkProcessor) submit(body []byte) ([]ItemFailure, error) {
	res, err := p.client.es.Bulk(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bulk submit: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("bulk submit: status %d: %s", res.StatusCode, string(raw))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("bulk submit: decode response: %w", err)
	}
	if !parsed.Errors {
		return nil, nil
	}

	var failed []ItemFailure
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Status >= 400 {
				failure := ItemFailure{
					Index:  result.Index,
					ID:     result.ID,
					Status: result.Status,
				}
				if result.Error != nil {
					failure.Reason = result.Error.Type + ": " + result.Error.Reason
				}
				failed = append(failed, failure)
			}
		}
	}
	return failed, nil
}

// observe logs and counts the outcome, then publishes it without ever
// blocking the worker.
func (p *BulkProcessor) observe(report Report) {
	switch {
	case report.Err != nil:
		p.log.Error("bulk flush failed terminally, documents dropped",
			logger.String("execution_id", report.ExecutionID),
			logger.Int("operations", report.Operations),
			logger.Int("attempts", report.Attempts),
			logger.Error(report.Err),
		)
		if p.metrics != nil {
			p.metrics.FlushesTotal.WithLabelValues("failure").Inc()
			p.metrics.DocumentsDropped.Add(float64(report.Operations))
		}
	case len(report.Failed) > 0:
		p.log.Warn("bulk flush completed with rejected documents",
			logger.String("execution_id", report.ExecutionID),
			logger.Int("operations", report.Operations),
			logger.Int("rejected", len(report.Failed)),
			logger.Duration("took", report.Took),
		)
		if p.metrics != nil {
			p.metrics.FlushesTotal.WithLabelValues("success").Inc()
			p.metrics.DocumentsFailed.Add(float64(len(report.Failed)))
		}
	default:
		p.log.Debug("bulk flush completed",
			logger.String("execution_id", report.ExecutionID),
			logger.Int("operations", report.Operations),
			logger.Duration("took", report.Took),
		)
		if p.metrics != nil {
			p.metrics.FlushesTotal.WithLabelValues("success").Inc()
		}
	}
	if p.metrics != nil {
		p.metrics.FlushDuration.Observe(report.Took.Seconds())
	}

	select {
	case p.reports <- report:
	default:
	}
}

// encodeBulkBody renders a batch as NDJSON: one action line and one
// document line per operation, in enqueue order.
func encodeBulkBody(batch []Operation) ([]byte, error) {
	var buf bytes.Buffer
	for _, op := range batch {
		meta := map[string]map[string]string{
			actionName(op.Kind): {
				"_index": op.Index,
				"_id":    op.ID,
			},
		}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}

		if op.Kind == OpUpdate {
			doc := struct {
				Doc json.RawMessage `json:"doc"`
			}{Doc: op.doc}
			if err := json.NewEncoder(&buf).Encode(doc); err != nil {
				return nil, fmt.Errorf("encode bulk document: %w", err)
			}
		} else {
			buf.Write(op.doc)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

func actionName(kind OpKind) string {
	if kind == OpUpdate {
		return "update"
	}
	return "index"
}

// bulkResponse is the store's bulk result envelope. Items are keyed by
// action name ("index" or "update").
type bulkResponse struct {
	Took   int64                     `json:"took"`
	Errors bool                      `json:"errors"`
	Items  []map[string]bulkItemInfo `json:"items"`
}

type bulkItemInfo struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Error  *bulkItemError `json:"error,omitempty"`
}

type bulkItemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
