package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// The query gateway is a thin passthrough: callers build the query DSL,
// the store owns query correctness. No batching, retry, or caching here.

// SearchResult is the decoded hit envelope of a search response.
type SearchResult struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
}

// Hit is a single search hit. Source stays raw so each DAO decodes into
// its own model type.
type Hit struct {
	Index   string          `json:"_index"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version,omitempty"`
	Source  json.RawMessage `json:"_source"`
}

// GetResult is the decoded body of a single-document get.
type GetResult struct {
	Index   string          `json:"_index"`
	ID      string          `json:"_id"`
	Found   bool            `json:"found"`
	Version int64           `json:"_version,omitempty"`
	Source  json.RawMessage `json:"_source"`
}

// Search resolves the index and executes the given query body against it.
func (c *Client) Search(ctx context.Context, logicalName string, query map[string]any) (*SearchResult, error) {
	physical := c.ns.Resolve(logicalName)

	raw, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", physical, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithIndex(physical),
		c.es.Search.WithBody(bytes.NewReader(raw)),
		c.es.Search.WithTrackTotalHits(true),
		c.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", physical, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %s: status %d: %s", physical, res.StatusCode, string(body))
	}

	var result SearchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("search %s: decode response: %w", physical, err)
	}
	return &result, nil
}

// Get fetches a single document by id. Found is false when the document
// does not exist; that is not an error.
func (c *Client) Get(ctx context.Context, logicalName, id string) (*GetResult, error) {
	physical := c.ns.Resolve(logicalName)

	res, err := c.es.Get(physical, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", physical, id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get %s/%s: status %d: %s", physical, id, res.StatusCode, string(body))
	}

	var result GetResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("get %s/%s: decode response: %w", physical, id, err)
	}
	return &result, nil
}

// IDs fetches the documents with the given ids in one search.
func (c *Client) IDs(ctx context.Context, logicalName string, ids []string) (*SearchResult, error) {
	query := map[string]any{
		"query": map[string]any{
			"ids": map[string]any{
				"values": ids,
			},
		},
		"size": len(ids),
	}
	return c.Search(ctx, logicalName, query)
}
