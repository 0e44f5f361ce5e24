package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
)

// ─── Aggregate State Tests ─────────────────────────────────────────

func TestGetState(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Document == nil || resp.Document.Mode != exposure.ModeLinked {
		t.Errorf("document mode = %v, want linked", resp.Document)
	}
	if resp.EntityCount != 5 {
		t.Errorf("entity_count = %d, want 5", resp.EntityCount)
	}
	if len(resp.Entities) != 5 {
		t.Fatalf("len(entities) = %d, want 5", len(resp.Entities))
	}

	// Records arrive in entity-id order; the disabled entity is absent.
	first := resp.Entities[0]
	if first.EntityID != "light.kitchen" {
		t.Errorf("first entity = %q, want light.kitchen", first.EntityID)
	}
	if first.DisplayName != "Kitchen Spots" {
		t.Errorf("display_name = %q, want Kitchen Spots", first.DisplayName)
	}
	if first.Area != "Kitchen" {
		t.Errorf("area = %q, want Kitchen", first.Area)
	}
	for _, e := range resp.Entities {
		if e.EntityID == "binary_sensor.hidden" {
			t.Error("disabled entity should not appear in state")
		}
	}

	// Fresh document is exclude mode with empty lists: everything
	// exposed everywhere.
	for _, assistant := range []string{"google", "alexa", "homekit"} {
		if !first.Exposed[assistant] {
			t.Errorf("light.kitchen exposed[%s] = false, want true", assistant)
		}
	}

	if len(resp.Devices) != 3 {
		t.Errorf("len(devices) = %d, want 3", len(resp.Devices))
	}
	if len(resp.Areas) != 3 {
		t.Errorf("len(areas) = %d, want 3", len(resp.Areas))
	}
	wantDomains := []string{"light", "media_player", "sensor", "switch"}
	if !reflect.DeepEqual(resp.Domains, wantDomains) {
		t.Errorf("domains = %v, want %v", resp.Domains, wantDomains)
	}
	if len(resp.Bridges) != 1 || resp.Bridges[0].EntryID != "bridge-1" {
		t.Errorf("bridges = %v, want single bridge-1", resp.Bridges)
	}
	if len(resp.SupportedDomains) == 0 {
		t.Error("expected supported_domains to be populated")
	}
	if resp.LastRefresh == nil {
		t.Error("expected last_refresh to be set")
	}
}

func TestGetState_VerdictsFollowFilter(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"action": "exclude", "entity_ids": ["light.kitchen"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bulk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk status = %d; body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, e := range resp.Entities {
		switch e.EntityID {
		case "light.kitchen":
			// Linked mode: the shared exclusion hides it from all three.
			for assistant, exposed := range e.Exposed {
				if exposed {
					t.Errorf("light.kitchen exposed[%s] = true, want false", assistant)
				}
			}
		case "light.lamp":
			if !e.Exposed["google"] {
				t.Error("light.lamp should remain exposed to google")
			}
		}
	}
}

func TestGetState_RefreshFailure(t *testing.T) {
	srv, env := testServer(t)
	router := srv.buildRouter()
	env.states.err = errors.New("hub unreachable")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state?refresh=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("refresh failure status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	var resp errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != ErrCodeHub {
		t.Errorf("error code = %q, want %q", resp.Error.Code, ErrCodeHub)
	}

	// The cached snapshot survives the failed refresh.
	env.states.err = nil
	req = httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var ok StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ok); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ok.EntityCount != 5 {
		t.Errorf("entity_count after failed refresh = %d, want 5", ok.EntityCount)
	}
}

func TestGetState_RefreshPicksUpChanges(t *testing.T) {
	srv, env := testServer(t)
	router := srv.buildRouter()

	env.states.states = append(env.states.states, homeassistant.State{
		EntityID:   "lock.front_door",
		State:      "locked",
		Attributes: map[string]any{"friendly_name": "Front Door"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state?refresh=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.EntityCount != 6 {
		t.Errorf("entity_count = %d, want 6 after refresh", resp.EntityCount)
	}
}
