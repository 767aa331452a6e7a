package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
	"github.com/jonesrussell/telemetry-storage/internal/retry"
)

// newTestClient connects a client to a fake cluster that answers the
// connect-time ping and hands everything else to the test handler.
func newTestClient(t *testing.T, namespace string, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"version":{"number":"8.19.3"}}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(context.Background(), elasticsearch.Config{
		ClusterNodes: strings.TrimPrefix(srv.URL, "http://"),
		Namespace:    namespace,
		ConnectRetry: &retry.Config{MaxAttempts: 1},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
