package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
)

// Client publishes VoiceBridge announcements to the broker. It is a
// publisher only; no subscriptions are ever made. Liveness is exposed
// through a retained status document plus a Last Will that flips it to
// offline if the process dies without a goodbye.
//
// All methods are safe for concurrent use.
type Client struct {
	paho pahomqtt.Client
	cfg  config.MQTTConfig

	// connected mirrors the paho state so health checks stay lock-free.
	connected atomic.Bool

	mu           sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
}

// Connect dials the broker and publishes the online status document.
// Reconnection after that is paho's job: the options carry auto-retry
// with backoff, and each regained session republishes the status.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg}

	opts := withLastWill(clientOptions(cfg), cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: no broker response within %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The on-connect handler runs on paho's goroutine and may not have
	// fired yet; mark the state here so IsConnected is true on return.
	c.connected.Store(true)
	return c, nil
}

// sessionUp runs on every established session, initial and regained.
func (c *Client) sessionUp() {
	c.connected.Store(true)

	// Retained, so late subscribers see the current liveness state. A
	// failed publish here is corrected on the next reconnect cycle.
	topic := Topics{}.SystemStatus()
	_ = c.PublishRetained(topic, []byte(statusPayload("online", "", c.cfg.Broker.ClientID)))

	c.mu.RLock()
	cb := c.onConnect
	c.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) sessionDown(err error) {
	c.connected.Store(false)

	c.mu.RLock()
	cb := c.onDisconnect
	c.mu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// Close announces a graceful shutdown and disconnects. The retained
// status flips to offline with a distinct reason, so subscribers can
// tell a clean stop from a crash (which the Last Will reports instead).
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		topic := Topics{}.SystemStatus()
		_ = c.PublishRetained(topic, []byte(statusPayload("offline", "graceful_shutdown", c.cfg.Broker.ClientID)))
	}

	c.paho.Disconnect(disconnectQuiesceMS)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports broker connectivity for the health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a broker session is currently up.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.paho.IsConnected()
}

// SetOnConnect registers a callback invoked on every established
// session, including reconnects.
func (c *Client) SetOnConnect(cb func()) {
	c.mu.Lock()
	c.onConnect = cb
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the session drops,
// with the error that ended it.
func (c *Client) SetOnDisconnect(cb func(err error)) {
	c.mu.Lock()
	c.onDisconnect = cb
	c.mu.Unlock()
}

// withLastWill arms the broker-side crash notice: if the session dies
// without a clean disconnect, the broker itself flips the retained
// status document to offline.
func withLastWill(opts *pahomqtt.ClientOptions, clientID string) *pahomqtt.ClientOptions {
	opts.SetWill(Topics{}.SystemStatus(),
		statusPayload("offline", "unexpected_disconnect", clientID), 1, true)
	return opts
}

// statusPayload renders the retained liveness document for the status
// topic. reason is present only in offline payloads.
func statusPayload(status, reason, clientID string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
