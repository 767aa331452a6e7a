package elasticsearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
	"github.com/jonesrussell/telemetry-storage/internal/retry"
)

// newFakeCluster starts an HTTP server that impersonates the document
// store: it answers the connect-time ping and forwards everything else to
// the given handler. The product header is required by the client's
// transport.
func newFakeCluster(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if handler == nil {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestClient connects a Client to a fake cluster.
func newTestClient(t *testing.T, namespace string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := newFakeCluster(t, handler)

	cfg := Config{
		ClusterNodes: strings.TrimPrefix(srv.URL, "http://"),
		Namespace:    namespace,
		PingTimeout:  time.Second,
		ConnectRetry: &retry.Config{
			MaxAttempts:  1,
			InitialDelay: time.Millisecond,
		},
	}
	client, err := NewClient(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestParseClusterNodes(t *testing.T) {
	tests := []struct {
		name     string
		nodes    string
		protocol string
		expected []string
		wantErr  bool
	}{
		{
			name:     "single node",
			nodes:    "es-1:9200",
			protocol: "http",
			expected: []string{"http://es-1:9200"},
		},
		{
			name:     "multiple nodes",
			nodes:    "es-1:9200,es-2:9200,es-3:9201",
			protocol: "https",
			expected: []string{"https://es-1:9200", "https://es-2:9200", "https://es-3:9201"},
		},
		{
			name:     "empty entries skipped",
			nodes:    "es-1:9200,,es-2:9200,",
			protocol: "http",
			expected: []string{"http://es-1:9200", "http://es-2:9200"},
		},
		{
			name:     "whitespace trimmed",
			nodes:    " es-1:9200 , es-2:9200 ",
			protocol: "http",
			expected: []string{"http://es-1:9200", "http://es-2:9200"},
		},
		{
			name:     "missing port",
			nodes:    "es-1",
			protocol: "http",
			wantErr:  true,
		},
		{
			name:     "non-numeric port",
			nodes:    "es-1:http",
			protocol: "http",
			wantErr:  true,
		},
		{
			name:     "no nodes at all",
			nodes:    ",",
			protocol: "http",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClusterNodes(tt.nodes, tt.protocol)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClusterNodes) {
					t.Fatalf("parseClusterNodes(%q) error = %v, want ErrInvalidClusterNodes", tt.nodes, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClusterNodes(%q) = %v", tt.nodes, err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("parseClusterNodes(%q) = %v, want %v", tt.nodes, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("address[%d] = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	if cfg.ClusterNodes != "localhost:9200" {
		t.Errorf("ClusterNodes = %q, want localhost:9200", cfg.ClusterNodes)
	}
	if cfg.Protocol != "http" {
		t.Errorf("Protocol = %q, want http", cfg.Protocol)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Errorf("PingTimeout = %v, want 5s", cfg.PingTimeout)
	}
	if cfg.ConnectRetry == nil {
		t.Fatal("ConnectRetry is nil, want defaults")
	}
	if cfg.ConnectRetry.MaxAttempts != 5 {
		t.Errorf("ConnectRetry.MaxAttempts = %d, want 5", cfg.ConnectRetry.MaxAttempts)
	}
}

func TestNewClient_PingSucceeds(t *testing.T) {
	client := newTestClient(t, "", nil)
	if client.Namespace().Configured() {
		t.Error("Namespace().Configured() = true, want false")
	}
}

func TestNewClient_MalformedNodes(t *testing.T) {
	cfg := Config{ClusterNodes: "es-1:badport"}
	_, err := NewClient(context.Background(), cfg, logger.NewNop())
	if !errors.Is(err, ErrInvalidClusterNodes) {
		t.Fatalf("NewClient() error = %v, want ErrInvalidClusterNodes", err)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := Config{
		// Reserved TEST-NET address, nothing listens there.
		ClusterNodes: "192.0.2.1:9200",
		PingTimeout:  100 * time.Millisecond,
		ConnectRetry: &retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
		},
	}
	_, err := NewClient(context.Background(), cfg, logger.NewNop())
	if !errors.Is(err, ErrClusterUnreachable) {
		t.Fatalf("NewClient() error = %v, want ErrClusterUnreachable", err)
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := newTestClient(t, "", nil)
	client.Close()
	client.Close()

	var nilClient *Client
	nilClient.Close()
}
