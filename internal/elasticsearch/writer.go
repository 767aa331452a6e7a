package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// The synchronous writer is the strong-visibility path for low-volume,
// registration-style metadata such as the unique-id lock records. Every
// write here uses refresh=true so it is observable by reads before the
// call returns. High-volume telemetry goes through the BulkProcessor
// instead.

// ForceInsert writes a single document and waits until it is visible.
func (c *Client) ForceInsert(ctx context.Context, logicalName, id string, source map[string]any) error {
	physical := c.ns.Resolve(logicalName)

	raw, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("force insert %s/%s: %w", physical, id, err)
	}

	res, err := c.es.Index(physical, bytes.NewReader(raw),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithRefresh("true"),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("force insert %s/%s: %w", physical, id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("force insert %s/%s: status %d: %s", physical, id, res.StatusCode, string(body))
	}

	c.log.Debug("force insert", logger.String("index", physical), logger.String("id", id))
	return nil
}

// ForceUpdate overwrites a single document with immediate visibility and
// no concurrency check.
func (c *Client) ForceUpdate(ctx context.Context, logicalName, id string, source map[string]any) error {
	physical := c.ns.Resolve(logicalName)

	doc := map[string]any{"doc": source}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("force update %s/%s: %w", physical, id, err)
	}

	res, err := c.es.Update(physical, id, bytes.NewReader(raw),
		c.es.Update.WithRefresh("true"),
		c.es.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("force update %s/%s: %w", physical, id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("force update %s/%s: status %d: %s", physical, id, res.StatusCode, string(body))
	}

	c.log.Debug("force update", logger.String("index", physical), logger.String("id", id))
	return nil
}

// ForceUpdateVersioned overwrites a single document with immediate
// visibility, guarded by an optimistic version check: the write is
// rejected with ErrVersionConflict unless expectedVersion is ahead of the
// stored version. A stale version performs no write. The caller decides
// whether to re-read and retry.
func (c *Client) ForceUpdateVersioned(ctx context.Context, logicalName, id string, source map[string]any, expectedVersion int64) error {
	physical := c.ns.Resolve(logicalName)

	raw, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("force update %s/%s: %w", physical, id, err)
	}

	res, err := c.es.Index(physical, bytes.NewReader(raw),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithRefresh("true"),
		c.es.Index.WithVersion(int(expectedVersion)),
		c.es.Index.WithVersionType("external"),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("force update %s/%s: %w", physical, id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return fmt.Errorf("force update %s/%s at version %d: %w", physical, id, expectedVersion, ErrVersionConflict)
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("force update %s/%s: status %d: %s", physical, id, res.StatusCode, string(body))
	}

	c.log.Debug("force update",
		logger.String("index", physical),
		logger.String("id", id),
		logger.Int64("version", expectedVersion),
	)
	return nil
}
