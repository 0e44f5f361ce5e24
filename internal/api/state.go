package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
)

// EntityView is one entity in the aggregate state response: the directory
// record plus the per-assistant exposure verdicts for the current document.
type EntityView struct {
	EntityID    string          `json:"entity_id"`
	Domain      string          `json:"domain"`
	DisplayName string          `json:"display_name"`
	DeviceID    string          `json:"device_id,omitempty"`
	Area        string          `json:"area,omitempty"`
	Exposed     map[string]bool `json:"exposed"`
}

// StateResponse is the full aggregate the admin UI renders from.
type StateResponse struct {
	Document         *exposure.Document          `json:"document"`
	Entities         []EntityView                `json:"entities"`
	Devices          []homeassistant.DeviceEntry `json:"devices"`
	Areas            []homeassistant.Area        `json:"areas"`
	Domains          []string                    `json:"domains"`
	Bridges          []homeassistant.ConfigEntry `json:"bridges"`
	SupportedDomains []string                    `json:"supported_domains"`
	EntityCount      int                         `json:"entity_count"`
	LastRefresh      *time.Time                  `json:"last_refresh,omitempty"`
}

// handleGetState returns the configuration document together with the
// entity/device/area snapshots, per-assistant exposure verdicts, the
// available HomeKit bridges, and the supported-domain universe.
//
// Query parameters:
//   - refresh: "true" forces a directory refresh from the hub first
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if isTruthy(r.URL.Query().Get("refresh")) {
		started := time.Now()
		if err := s.directory.Refresh(ctx); err != nil {
			s.writeHubError(w, err)
			return
		}
		if s.influx != nil {
			s.influx.WritePoint("registry_refresh",
				map[string]string{"source": "api"},
				map[string]any{
					"entities":    s.directory.Count(),
					"duration_ms": float64(time.Since(started)) / float64(time.Millisecond),
				})
		}
	}

	doc, err := s.store.State(ctx)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	// One resolver per assistant over its effective config; every entity
	// is scored against all three.
	resolvers := make(map[exposure.Assistant]*exposure.Resolver, len(exposure.AllAssistants()))
	for _, assistant := range exposure.AllAssistants() {
		resolvers[assistant] = exposure.NewResolver(doc.EffectiveFilterConfig(assistant))
	}

	records := s.directory.Entities()
	entities := make([]EntityView, 0, len(records))
	for _, rec := range records {
		entity := exposure.Entity{
			EntityID: rec.EntityID,
			Domain:   rec.Domain,
			DeviceID: rec.DeviceID,
		}
		exposed := make(map[string]bool, len(resolvers))
		for assistant, resolver := range resolvers {
			exposed[string(assistant)] = resolver.Exposed(entity)
		}
		entities = append(entities, EntityView{
			EntityID:    rec.EntityID,
			Domain:      rec.Domain,
			DisplayName: rec.DisplayName,
			DeviceID:    rec.DeviceID,
			Area:        s.directory.AreaName(rec.EntityID),
			Exposed:     exposed,
		})
	}

	// Bridge listing is best-effort: a hub outage must not take the whole
	// read surface down with it.
	bridges, err := s.bridges.ListBridges(ctx)
	if err != nil {
		s.logger.Warn("bridge listing unavailable", "error", err)
		bridges = []homeassistant.ConfigEntry{}
	}

	resp := StateResponse{
		Document:         doc,
		Entities:         entities,
		Devices:          s.directory.Devices(),
		Areas:            s.directory.Areas(),
		Domains:          s.directory.Domains(),
		Bridges:          bridges,
		SupportedDomains: homekit.SupportedDomains,
		EntityCount:      s.directory.Count(),
	}
	if last := s.directory.LastRefresh(); !last.IsZero() {
		resp.LastRefresh = &last
	}

	writeJSON(w, http.StatusOK, resp)
}

// isTruthy reports whether a query flag is set.
func isTruthy(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}
