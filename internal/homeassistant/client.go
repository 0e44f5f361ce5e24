package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// defaultTimeout bounds REST requests when no timeout is configured.
const defaultTimeout = 10 * time.Second

// errorBodyLimit caps how much of an error response body is read into
// error messages.
const errorBodyLimit = 512

// statusError carries the HTTP status of a failed API call so callers
// can branch on it with errors.As.
type statusError struct {
	method string
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.method, e.path, e.status, e.body)
}

// Client is a Home Assistant REST API client. It covers the surfaces
// this service needs: entity states, service calls, the core config
// check, config entries, and config-entry options flows.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     Logger
}

// ClientOptions holds configuration for creating a Client.
type ClientOptions struct {
	// BaseURL is the Home Assistant root, e.g. "http://homeassistant:8123".
	BaseURL string

	// Token is a long-lived access token with admin rights.
	Token string

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration

	// Logger is optional; defaults to no-op.
	Logger Logger
}

// NewClient creates a Home Assistant REST client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("homeassistant: base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("homeassistant: invalid base URL: %w", err)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("homeassistant: token is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// BaseURL returns the configured Home Assistant root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the configured access token. Used to share credentials
// with the WebSocket client.
func (c *Client) Token() string {
	return c.token
}

// apiStatus is the GET /api/ response.
type apiStatus struct {
	Message string `json:"message"`
}

// Ping checks that the API is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var status apiStatus
	if err := c.get(ctx, "/api/", &status); err != nil {
		return err
	}
	if status.Message != "API running." {
		return fmt.Errorf("%w: unexpected API status %q", ErrRequestFailed, status.Message)
	}
	return nil
}

// GetStates retrieves all entity states.
func (c *Client) GetStates(ctx context.Context) ([]State, error) {
	var states []State
	if err := c.get(ctx, "/api/states", &states); err != nil {
		return nil, err
	}
	return states, nil
}

// CallService calls a Home Assistant service.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	return c.post(ctx, path, data, nil)
}

// CheckConfig runs the core configuration check and reports the result.
// A syntactically broken configuration is a valid response, not an
// error; errors mean the check itself could not run.
func (c *Client) CheckConfig(ctx context.Context) (*ConfigCheckResult, error) {
	var result ConfigCheckResult
	if err := c.post(ctx, "/api/config/core/check_config", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Restart asks Home Assistant to restart. Returns once the service call
// is accepted; it does not wait for the restart to complete.
func (c *Client) Restart(ctx context.Context) error {
	c.logger.Info("requesting Home Assistant restart")
	return c.CallService(ctx, "homeassistant", "restart", nil)
}

// ConfigEntries lists config entries, optionally filtered to one
// integration domain.
func (c *Client) ConfigEntries(ctx context.Context, domain string) ([]ConfigEntry, error) {
	path := "/api/config/config_entries/entry"
	if domain != "" {
		path += "?domain=" + url.QueryEscape(domain)
	}

	var entries []ConfigEntry
	if err := c.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// get performs a GET request against the API.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs a POST request against the API.
func (c *Client) post(ctx context.Context, path string, data any, result any) error {
	return c.do(ctx, http.MethodPost, path, data, result)
}

// delete performs a DELETE request against the API.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, data any, result any) error {
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		serr := &statusError{
			method: method,
			path:   path,
			status: resp.StatusCode,
			body:   strings.TrimSpace(string(msg)),
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", ErrAuthFailed, serr)
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, serr)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response from %s: %w", path, err)
		}
	}

	return nil
}
