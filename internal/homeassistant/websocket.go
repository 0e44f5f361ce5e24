package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket sizing. Registry responses scale with the installation;
// large homes carry thousands of entities.
const (
	wsReadBufferSize  = 1024 * 1024
	wsWriteBufferSize = 64 * 1024
	wsReadLimit       = 100 * 1024 * 1024

	defaultCommandTimeout = 30 * time.Second
)

// WSClient manages a WebSocket connection to Home Assistant and issues
// the registry listing commands that have no REST equivalent.
//
// The connection is established lazily: any command dials and
// authenticates first when no connection is live, so a dropped
// connection heals on the next use without a background watcher.
//
// Thread Safety: all methods are safe for concurrent use.
type WSClient struct {
	baseURL string
	token   string
	timeout time.Duration

	conn   *websocket.Conn
	connMu sync.Mutex
	msgID  atomic.Int64

	// Response channels keyed by message id.
	pending   map[int64]chan wsResponse
	pendingMu sync.Mutex

	logger Logger
}

// wsMessage is the generic WebSocket message format.
type wsMessage struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsResponse wraps a command result for the response channel.
type wsResponse struct {
	Success bool
	Result  json.RawMessage
	Error   *wsError
}

// WSOptions holds configuration for creating a WSClient.
type WSOptions struct {
	// BaseURL is the Home Assistant root; the scheme is converted to
	// ws/wss automatically.
	BaseURL string

	// Token is a long-lived access token.
	Token string

	// Timeout bounds each command round-trip. Defaults to 30s.
	Timeout time.Duration

	// Logger is optional; defaults to no-op.
	Logger Logger
}

// NewWSClient creates a WebSocket client. No connection is made until
// Connect or the first command.
func NewWSClient(opts WSOptions) (*WSClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("homeassistant: base URL is required")
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("homeassistant: token is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &WSClient{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		timeout: timeout,
		pending: make(map[int64]chan wsResponse),
		logger:  logger,
	}, nil
}

// Connect establishes the WebSocket connection and authenticates.
// Safe to call when already connected.
func (c *WSClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connectLocked(ctx)
}

// connectLocked dials and authenticates. Caller holds connMu.
func (c *WSClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/api/websocket"

	c.logger.Debug("connecting to Home Assistant WebSocket", "url", u.String())

	dialer := websocket.Dialer{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dialling websocket: %w", err)
	}
	conn.SetReadLimit(wsReadLimit)

	// Handshake: auth_required -> auth -> auth_ok.
	var authReq wsMessage
	if err := conn.ReadJSON(&authReq); err != nil {
		conn.Close()
		return fmt.Errorf("reading auth_required: %w", err)
	}
	if authReq.Type != "auth_required" {
		conn.Close()
		return fmt.Errorf("%w: expected auth_required, got %q", ErrRequestFailed, authReq.Type)
	}

	if err := conn.WriteJSON(map[string]string{
		"type":         "auth",
		"access_token": c.token,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("sending auth: %w", err)
	}

	var authResp wsMessage
	if err := conn.ReadJSON(&authResp); err != nil {
		conn.Close()
		return fmt.Errorf("reading auth response: %w", err)
	}
	switch authResp.Type {
	case "auth_ok":
	case "auth_invalid":
		conn.Close()
		return ErrAuthFailed
	default:
		conn.Close()
		return fmt.Errorf("%w: unexpected auth response %q", ErrRequestFailed, authResp.Type)
	}

	c.conn = conn
	c.logger.Info("websocket authenticated")

	go c.readLoop(conn)
	return nil
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// EntityRegistry retrieves the entity registry.
func (c *WSClient) EntityRegistry(ctx context.Context) ([]EntityEntry, error) {
	var entries []EntityEntry
	if err := c.command(ctx, "config/entity_registry/list", &entries); err != nil {
		return nil, fmt.Errorf("listing entity registry: %w", err)
	}
	return entries, nil
}

// DeviceRegistry retrieves the device registry.
func (c *WSClient) DeviceRegistry(ctx context.Context) ([]DeviceEntry, error) {
	var devices []DeviceEntry
	if err := c.command(ctx, "config/device_registry/list", &devices); err != nil {
		return nil, fmt.Errorf("listing device registry: %w", err)
	}
	return devices, nil
}

// AreaRegistry retrieves the area registry.
func (c *WSClient) AreaRegistry(ctx context.Context) ([]Area, error) {
	var areas []Area
	if err := c.command(ctx, "config/area_registry/list", &areas); err != nil {
		return nil, fmt.Errorf("listing area registry: %w", err)
	}
	return areas, nil
}

// command sends one typed command and decodes its result.
func (c *WSClient) command(ctx context.Context, msgType string, result any) error {
	id := c.msgID.Add(1)
	raw, err := c.sendAndWait(ctx, id, map[string]any{
		"id":   id,
		"type": msgType,
	})
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", msgType, err)
		}
	}
	return nil
}

// sendAndWait sends a message and waits for its response, connecting
// first if needed.
func (c *WSClient) sendAndWait(ctx context.Context, id int64, msg any) (json.RawMessage, error) {
	respCh := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.connMu.Lock()
	if err := c.connectLocked(ctx); err != nil {
		c.connMu.Unlock()
		return nil, err
	}
	err := c.conn.WriteJSON(msg)
	c.connMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}

	select {
	case resp := <-respCh:
		if !resp.Success {
			if resp.Error != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrRequestFailed, resp.Error.Code, resp.Error.Message)
			}
			return nil, ErrRequestFailed
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.timeout):
		return nil, fmt.Errorf("%w: timeout waiting for response", ErrRequestFailed)
	}
}

// readLoop reads messages from one connection until it dies, then
// clears the connection so the next command redials.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.failPending()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket closed")
			} else {
				c.logger.Warn("websocket read failed, connection lost", "error", err)
			}

			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			return
		}

		switch msg.Type {
		case "result":
			c.pendingMu.Lock()
			if ch, ok := c.pending[msg.ID]; ok {
				ch <- wsResponse{Success: msg.Success, Result: msg.Result, Error: msg.Error}
			}
			c.pendingMu.Unlock()

		case "pong":
			// Keepalive, nothing to do.

		default:
			c.logger.Debug("unhandled websocket message", "type", msg.Type)
		}
	}
}

// failPending answers every in-flight command with a disconnect error
// so callers are not left waiting out their timeout.
func (c *WSClient) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for id, ch := range c.pending {
		select {
		case ch <- wsResponse{Error: &wsError{Code: "disconnected", Message: "connection lost"}}:
		default:
		}
		delete(c.pending, id)
	}
}
