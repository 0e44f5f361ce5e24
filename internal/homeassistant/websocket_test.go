package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newWSTestServer runs a fake Home Assistant WebSocket endpoint: auth
// handshake, then each command is passed to handler.
func newWSTestServer(t *testing.T, handler func(conn *websocket.Conn, msg wsMessage)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]string{"type": "auth_required", "ha_version": "2026.8.0"})

		var auth map[string]string
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth["access_token"] != testToken {
			conn.WriteJSON(map[string]string{"type": "auth_invalid", "message": "Invalid access token"})
			return
		}
		conn.WriteJSON(map[string]string{"type": "auth_ok", "ha_version": "2026.8.0"})

		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			handler(conn, msg)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestWSClient returns a WSClient pointed at a test server.
func newTestWSClient(t *testing.T, srv *httptest.Server, token string) *WSClient {
	t.Helper()

	client, err := NewWSClient(WSOptions{
		BaseURL: srv.URL,
		Token:   token,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewWSClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWSClientEntityRegistry(t *testing.T) {
	srv := newWSTestServer(t, func(conn *websocket.Conn, msg wsMessage) {
		if msg.Type != "config/entity_registry/list" {
			t.Errorf("command type = %q, want entity registry list", msg.Type)
		}
		result, _ := json.Marshal([]map[string]any{
			{
				"entity_id":     "light.kitchen",
				"name":          "Kitchen Spots",
				"original_name": "Light",
				"device_id":     "dev-1",
				"area_id":       "kitchen",
				"platform":      "hue",
			},
			{
				"entity_id":   "light.attic",
				"disabled_by": "user",
				"platform":    "hue",
			},
		})
		conn.WriteJSON(map[string]any{
			"id":      msg.ID,
			"type":    "result",
			"success": true,
			"result":  json.RawMessage(result),
		})
	})
	client := newTestWSClient(t, srv, testToken)

	entries, err := client.EntityRegistry(context.Background())
	if err != nil {
		t.Fatalf("EntityRegistry() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Name != "Kitchen Spots" || entries[0].DeviceID != "dev-1" {
		t.Errorf("entries[0] = %+v, want kitchen entry", entries[0])
	}
	if !entries[1].IsDisabled() {
		t.Error("IsDisabled() = false for user-disabled entity")
	}
}

func TestWSClientAuthInvalid(t *testing.T) {
	srv := newWSTestServer(t, func(conn *websocket.Conn, msg wsMessage) {})
	client := newTestWSClient(t, srv, "wrong-token")

	err := client.Connect(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Connect() error = %v, want ErrAuthFailed", err)
	}
}

func TestWSClientCommandError(t *testing.T) {
	srv := newWSTestServer(t, func(conn *websocket.Conn, msg wsMessage) {
		conn.WriteJSON(map[string]any{
			"id":      msg.ID,
			"type":    "result",
			"success": false,
			"error":   map[string]string{"code": "unknown_command", "message": "Unknown command."},
		})
	})
	client := newTestWSClient(t, srv, testToken)

	_, err := client.AreaRegistry(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("AreaRegistry() error = %v, want ErrRequestFailed", err)
	}
}

func TestWSClientLazyConnect(t *testing.T) {
	srv := newWSTestServer(t, func(conn *websocket.Conn, msg wsMessage) {
		conn.WriteJSON(map[string]any{
			"id":      msg.ID,
			"type":    "result",
			"success": true,
			"result":  json.RawMessage(`[]`),
		})
	})
	client := newTestWSClient(t, srv, testToken)

	// No explicit Connect: the first command dials.
	areas, err := client.AreaRegistry(context.Background())
	if err != nil {
		t.Fatalf("AreaRegistry() error = %v", err)
	}
	if len(areas) != 0 {
		t.Errorf("areas = %v, want empty", areas)
	}
}
