// Package elasticsearch is the storage client for the telemetry platform.
// It hides multi-tenant index namespacing, the asynchronous bulk write
// pipeline, synchronous force writes, index/template lifecycle management,
// and retention deletion behind one client type.
package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
	"github.com/jonesrussell/telemetry-storage/internal/retry"
)

// Config holds the cluster connection configuration.
type Config struct {
	// ClusterNodes is a comma-separated host:port list. Every entry must
	// carry a numeric port.
	ClusterNodes string
	// Protocol is http or https.
	Protocol string
	// Username and Password enable basic auth when both are non-blank.
	Username string
	Password string
	// Namespace prefixes every physical index name. Empty disables it.
	Namespace string
	// PingTimeout bounds the liveness probe performed at connect time.
	PingTimeout time.Duration
	// ConnectRetry configures the ping retry policy. Nil uses defaults.
	ConnectRetry *retry.Config
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.ClusterNodes == "" {
		c.ClusterNodes = "localhost:9200"
	}
	if c.Protocol == "" {
		c.Protocol = "http"
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.ConnectRetry == nil {
		c.ConnectRetry = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}

// Client is the connection to the document store. One instance is
// constructed at startup and shared read-only by every component; nothing
// mutates connection parameters after NewClient returns.
type Client struct {
	es        *es.Client
	transport *http.Transport
	ns        Namespace
	log       logger.Logger
}

// NewClient parses the cluster node list, builds an authenticated
// connection, and verifies it with a ping before returning. A malformed
// node list fails with ErrInvalidClusterNodes; an unreachable cluster
// fails with ErrClusterUnreachable after the retry budget is spent.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*Client, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	addresses, err := parseClusterNodes(cfg.ClusterNodes, cfg.Protocol)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{}
	clientConfig := es.Config{
		Addresses: addresses,
		Transport: transport,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	esClient, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	c := &Client{
		es:        esClient,
		transport: transport,
		ns:        NewNamespace(cfg.Namespace),
		log:       log,
	}

	log.Info("verifying elasticsearch connection", logger.Strings("nodes", addresses))
	if err := retry.Retry(ctx, *cfg.ConnectRetry, func() error {
		return c.ping(ctx, cfg.PingTimeout)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClusterUnreachable, err)
	}
	log.Info("elasticsearch connection established",
		logger.Strings("nodes", addresses),
		logger.Bool("namespaced", c.ns.Configured()),
	)

	return c, nil
}

// Ping verifies cluster liveness. Used by the health endpoint after the
// connect-time probe has passed.
func (c *Client) Ping(ctx context.Context) error {
	return c.ping(ctx, 0)
}

// Namespace returns the configured index namespace.
func (c *Client) Namespace() Namespace {
	return c.ns
}

// Close releases pooled connections. Idempotent and safe to call on a
// client whose connect never succeeded.
func (c *Client) Close() {
	if c == nil || c.transport == nil {
		return
	}
	c.transport.CloseIdleConnections()
}

// parseClusterNodes splits "host:port,host:port" into full URLs. Empty
// entries are skipped; an entry without a numeric port is rejected.
func parseClusterNodes(nodes, protocol string) ([]string, error) {
	var addresses []string
	for _, node := range strings.Split(nodes, ",") {
		node = strings.TrimSpace(node)
		if node == "" {
			continue
		}
		host, port, err := net.SplitHostPort(node)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidClusterNodes, node, err)
		}
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("%w: %q: port is not numeric", ErrInvalidClusterNodes, node)
		}
		addresses = append(addresses, protocol+"://"+net.JoinHostPort(host, port))
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("%w: no nodes configured", ErrInvalidClusterNodes)
	}
	return addresses, nil
}

func (c *Client) ping(ctx context.Context, timeout time.Duration) error {
	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := c.es.Ping(c.es.Ping.WithContext(pingCtx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), string(body))
	}
	return nil
}
