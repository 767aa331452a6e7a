package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// rangeDeleteQuery is the typed body for a time-bucket range delete.
type rangeDeleteQuery struct {
	Query struct {
		Range map[string]rangeBound `json:"range"`
	} `json:"query"`
}

type rangeBound struct {
	LTE int64 `json:"lte"`
}

// DeleteByTimeBucket deletes every document whose time-bucket field is at
// or below the inclusive upper bound. Used by the TTL policy to enforce
// retention windows.
//
// The delete runs with conflicts=proceed: a document modified concurrently
// is skipped, not treated as fatal, so one hot document cannot abort a
// whole retention sweep. The raw status code is returned for the caller
// to interpret; there is no retry here.
func (c *Client) DeleteByTimeBucket(ctx context.Context, logicalName, timeBucketField string, upperBoundInclusive int64) (int, error) {
	physical := c.ns.Resolve(logicalName)

	var q rangeDeleteQuery
	q.Query.Range = map[string]rangeBound{
		timeBucketField: {LTE: upperBoundInclusive},
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return 0, fmt.Errorf("delete by time bucket %s: %w", physical, err)
	}

	res, err := c.es.DeleteByQuery([]string{physical}, bytes.NewReader(raw),
		c.es.DeleteByQuery.WithConflicts("proceed"),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by time bucket %s: %w", physical, err)
	}
	defer res.Body.Close()

	c.log.Debug("retention delete",
		logger.String("index", physical),
		logger.String("field", timeBucketField),
		logger.Int64("upper_bound", upperBoundInclusive),
		logger.Int("status", res.StatusCode),
	)
	return res.StatusCode, nil
}
