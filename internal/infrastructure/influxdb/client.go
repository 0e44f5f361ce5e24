package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	// dialTimeout bounds the connectivity probe during Connect.
	dialTimeout = 10 * time.Second

	// Fallbacks for zero or negative batching settings.
	defaultBatchSize    = 100
	defaultFlushSeconds = 10
	millisPerSecond     = 1000
)

// Client records operational telemetry in InfluxDB v2: command
// latencies, artifact write outcomes, and bridge sync results. Writes
// go through the non-blocking batched API, so a slow or absent InfluxDB
// never stalls a request; failures surface through the error callback.
//
// The zero value reports not-connected and drops writes. All methods
// are safe for concurrent use.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	connected atomic.Bool

	mu      sync.RWMutex
	onError func(err error)
}

// Connect builds the client, verifies the server answers a ping, and
// starts the error drain for asynchronous write failures. Returns
// ErrDisabled when the integration is switched off in config.yaml, so
// the caller can treat metrics as absent rather than broken.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushSeconds
	}

	// #nosec G115 -- both values clamped positive above
	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batch)).
			SetFlushInterval(uint(flush)*millisPerSecond))

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	if err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		influx.Close()
		return nil, fmt.Errorf("%w: server reported unhealthy", ErrConnectionFailed)
	}

	c := &Client{
		influx:   influx,
		writeAPI: influx.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
	}
	c.connected.Store(true)

	go c.drainWriteErrors(c.writeAPI.Errors())

	return c, nil
}

// drainWriteErrors forwards asynchronous write failures to the
// registered callback. The channel closes when the client does.
func (c *Client) drainWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		cb := c.onError
		c.mu.RUnlock()
		if cb != nil {
			cb(err)
		}
	}
}

// Close flushes buffered points and shuts the client down.
func (c *Client) Close() error {
	if c.influx == nil {
		return nil
	}

	c.connected.Store(false)
	c.writeAPI.Flush()
	c.influx.Close()
	return nil
}

// HealthCheck actively pings the server; IsConnected only reflects the
// last known state.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.influx.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb ping: server reported unhealthy")
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// SetOnError registers the callback receiving asynchronous write
// failures. Typically wired to a logger at startup.
func (c *Client) SetOnError(cb func(err error)) {
	c.mu.Lock()
	c.onError = cb
	c.mu.Unlock()
}

// Flush forces buffered points out now. Used by tests and shutdown
// paths; a disconnected client flushes nothing.
func (c *Client) Flush() {
	if c.writeAPI == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
