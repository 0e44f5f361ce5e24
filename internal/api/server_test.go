package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/voicebridge/internal/audit"
	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/generator"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
	"github.com/nerrad567/voicebridge/internal/infrastructure/logging"
	"github.com/nerrad567/voicebridge/internal/store"
)

// testEnv exposes the fixtures behind a test server so tests can flip
// hub availability or reach the fakes directly.
type testEnv struct {
	store      *store.Store
	directory  *homeassistant.Directory
	states     *fakeStates
	controller *fakeBridgeController
	auditRepo  *audit.SQLiteRepository
	hub        *hubStub
	outputDir  string
}

type fakeStates struct {
	states []homeassistant.State
	err    error
}

func (f *fakeStates) GetStates(ctx context.Context) ([]homeassistant.State, error) {
	return f.states, f.err
}

type fakeRegistry struct {
	entities []homeassistant.EntityEntry
	devices  []homeassistant.DeviceEntry
	areas    []homeassistant.Area
	err      error
}

func (f *fakeRegistry) EntityRegistry(ctx context.Context) ([]homeassistant.EntityEntry, error) {
	return f.entities, f.err
}

func (f *fakeRegistry) DeviceRegistry(ctx context.Context) ([]homeassistant.DeviceEntry, error) {
	return f.devices, f.err
}

func (f *fakeRegistry) AreaRegistry(ctx context.Context) ([]homeassistant.Area, error) {
	return f.areas, f.err
}

// fakeBridgeController implements homekit.Controller. The current list
// only advances when an update is accepted.
type fakeBridgeController struct {
	bridges []homeassistant.ConfigEntry
	listErr error
	filter  homeassistant.AccessoryFilter

	current []string
	rejects map[string]bool
}

func (f *fakeBridgeController) HomeKitBridges(ctx context.Context) ([]homeassistant.ConfigEntry, error) {
	return f.bridges, f.listErr
}

func (f *fakeBridgeController) AccessoryFilter(ctx context.Context, entryID string) (homeassistant.AccessoryFilter, error) {
	return homeassistant.AccessoryFilter{
		Mode:     f.filter.Mode,
		Entities: append([]string(nil), f.current...),
	}, nil
}

func (f *fakeBridgeController) SetAccessoryFilter(ctx context.Context, entryID string, filter homeassistant.AccessoryFilter) error {
	present := make(map[string]bool, len(f.current))
	for _, id := range f.current {
		present[id] = true
	}
	for _, id := range filter.Entities {
		if !present[id] && f.rejects[id] {
			return fmt.Errorf("accessory %s rejected", id)
		}
	}
	f.current = filter.Entities
	return nil
}

// hubStub fakes the hub REST endpoints the server passes requests
// through to: ping, config check, and restart.
type hubStub struct {
	down        bool
	checkResult homeassistant.ConfigCheckResult
	restarts    int
}

func (h *hubStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config/core/check_config", func(w http.ResponseWriter, r *http.Request) {
		if h.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(h.checkResult)
	})
	mux.HandleFunc("/api/services/homeassistant/restart", func(w http.ResponseWriter, r *http.Request) {
		if h.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		h.restarts++
		json.NewEncoder(w).Encode([]any{})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if h.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "API running."})
	})
	return mux
}

// testStates is five live entities plus one that the registry disables.
func testStates() []homeassistant.State {
	return []homeassistant.State{
		{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{"friendly_name": "Kitchen Spots"}},
		{EntityID: "light.lamp", State: "off", Attributes: map[string]any{"friendly_name": "Standing Lamp"}},
		{EntityID: "switch.heater", State: "off", Attributes: map[string]any{"friendly_name": "Bathroom Heater"}},
		{EntityID: "media_player.tv", State: "idle", Attributes: map[string]any{"friendly_name": "Lounge TV"}},
		{EntityID: "sensor.outdoor_temp", State: "18.5", Attributes: map[string]any{"friendly_name": "Outdoor Temperature"}},
		{EntityID: "binary_sensor.hidden", State: "off", Attributes: map[string]any{}},
	}
}

func testEntityEntries() []homeassistant.EntityEntry {
	return []homeassistant.EntityEntry{
		{EntityID: "light.kitchen", DeviceID: "dev-kitchen", AreaID: "kitchen"},
		{EntityID: "light.lamp", DeviceID: "dev-lamp", AreaID: "lounge"},
		{EntityID: "switch.heater", DeviceID: "dev-heater", AreaID: "bathroom"},
		{EntityID: "media_player.tv", AreaID: "lounge"},
		{EntityID: "binary_sensor.hidden", DisabledBy: "user"},
	}
}

func testDeviceEntries() []homeassistant.DeviceEntry {
	return []homeassistant.DeviceEntry{
		{ID: "dev-kitchen", Name: "Ceiling Spots", AreaID: "kitchen"},
		{ID: "dev-lamp", Name: "Standing Lamp", AreaID: "lounge"},
		{ID: "dev-heater", Name: "Heater Relay", AreaID: "bathroom"},
	}
}

func testAreas() []homeassistant.Area {
	return []homeassistant.Area{
		{AreaID: "kitchen", Name: "Kitchen"},
		{AreaID: "lounge", Name: "Lounge"},
		{AreaID: "bathroom", Name: "Bathroom"},
	}
}

// setupTestDB creates an in-memory SQLite database with the document
// and audit tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}

	schema := `
		CREATE TABLE config_documents (
			key            TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			document       TEXT NOT NULL,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);
		CREATE TABLE audit_logs (
			id         TEXT PRIMARY KEY,
			action     TEXT NOT NULL,
			assistant  TEXT,
			source     TEXT NOT NULL,
			details    TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at);
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("creating schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testServer creates a Server with a real store backed by in-memory
// SQLite, a directory built from fakes, and a stubbed hub.
func testServer(t *testing.T) (*Server, *testEnv) {
	t.Helper()
	ctx := context.Background()

	db := setupTestDB(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	states := &fakeStates{states: testStates()}
	registry := &fakeRegistry{
		entities: testEntityEntries(),
		devices:  testDeviceEntries(),
		areas:    testAreas(),
	}
	directory, err := homeassistant.NewDirectory(homeassistant.DirectoryOptions{States: states, Registry: registry})
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	if err := directory.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	st, err := store.New(store.Deps{
		Repository: store.NewSQLiteRepository(db),
		EntityInfo: directory,
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	if err := st.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	controller := &fakeBridgeController{
		bridges: []homeassistant.ConfigEntry{
			{EntryID: "bridge-1", Domain: "homekit", Title: "VoiceBridge HomeKit", State: "loaded"},
		},
		filter:  homeassistant.AccessoryFilter{Mode: homeassistant.FilterInclude, Entities: []string{"light.kitchen"}},
		current: []string{"light.kitchen"},
	}
	bridges, err := homekit.NewManager(homekit.ManagerOptions{
		Controller: controller,
		Store:      st,
		Directory:  directory,
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	st.SetBridgeChecker(bridges)

	outputDir := t.TempDir()
	gen, err := generator.New(generator.Options{OutputDir: outputDir, Logger: log})
	if err != nil {
		t.Fatalf("generator.New() error = %v", err)
	}

	hub := &hubStub{checkResult: homeassistant.ConfigCheckResult{Result: "valid"}}
	hubSrv := httptest.NewServer(hub.handler())
	t.Cleanup(hubSrv.Close)
	client, err := homeassistant.NewClient(homeassistant.ClientOptions{
		BaseURL: hubSrv.URL,
		Token:   "llat-test-token",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	auditRepo := audit.NewSQLiteRepository(db)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:    log,
		Store:     st,
		Directory: directory,
		Generator: gen,
		Bridges:   bridges,
		Hub:       client,
		Audit:     auditRepo,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return srv, &testEnv{
		store:      st,
		directory:  directory,
		states:     states,
		controller: controller,
		auditRepo:  auditRepo,
		hub:        hub,
		outputDir:  outputDir,
	}
}

// ─── Constructor Tests ─────────────────────────────────────────────

func TestNewMissingDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without dependencies should fail")
	}

	srv, _ := testServer(t)
	deps := Deps{
		Logger:    srv.logger,
		Store:     srv.store,
		Directory: srv.directory,
		Generator: srv.generator,
		Bridges:   srv.bridges,
		Hub:       srv.hub,
	}

	deps.Store = nil
	if _, err := New(deps); err == nil {
		t.Error("New() without store should fail")
	}
	deps.Store = srv.store

	deps.Bridges = nil
	if _, err := New(deps); err == nil {
		t.Error("New() without bridge manager should fail")
	}
}

func TestNewWithoutAuditHasNoChannel(t *testing.T) {
	srv, _ := testServer(t)

	plain, err := New(Deps{
		Logger:    srv.logger,
		Store:     srv.store,
		Directory: srv.directory,
		Generator: srv.generator,
		Bridges:   srv.bridges,
		Hub:       srv.hub,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if plain.auditCh != nil {
		t.Error("auditCh should be nil when no audit repository is configured")
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.Components["hub"] != "ok" {
		t.Errorf("hub component = %q, want ok", resp.Components["hub"])
	}
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		if resp.Components[name] != "disabled" {
			t.Errorf("%s component = %q, want disabled", name, resp.Components[name])
		}
	}
}

func TestHealth_HubDown(t *testing.T) {
	srv, env := testServer(t)
	router := srv.buildRouter()
	env.hub.down = true

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Degradation is reported in the body, never as a non-200.
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Components["hub"] != "error" {
		t.Errorf("hub component = %q, want error", resp.Components["hub"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	ct := w.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

// ─── Metrics Endpoint Tests ────────────────────────────────────────

func TestMetrics(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.UptimeSeconds < 0 {
		t.Errorf("uptime_seconds = %d, want >= 0", resp.UptimeSeconds)
	}
	if resp.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", resp.Runtime.Goroutines)
	}
	if resp.Directory.Entities != 5 {
		t.Errorf("directory entities = %d, want 5", resp.Directory.Entities)
	}
	if resp.Directory.ByDomain["light"] != 2 {
		t.Errorf("by_domain[light] = %d, want 2", resp.Directory.ByDomain["light"])
	}
	if resp.Directory.LastRefresh == "" {
		t.Error("expected last_refresh to be set")
	}
	if resp.MQTT.Enabled {
		t.Error("mqtt should report disabled without a client")
	}
	if resp.InfluxDB.Enabled {
		t.Error("influxdb should report disabled without a client")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
