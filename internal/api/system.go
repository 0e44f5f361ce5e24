package api

import (
	"net/http"
)

// HealthResponse reports overall and per-component health. Components
// that are not configured report "disabled" rather than failing.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// handleHealth reports server health plus each dependency's state. The
// endpoint always answers 200; a degraded component is visible in the
// body so probes can distinguish "down" from "up but impaired".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	components := make(map[string]string, 4)
	status := "ok"

	report := func(name string, err error) {
		if err != nil {
			components[name] = "error"
			status = "degraded"
			s.logger.Warn("health check failed", "component", name, "error", err)
			return
		}
		components[name] = "ok"
	}

	if s.db != nil {
		report("database", s.db.HealthCheck(ctx))
	} else {
		components["database"] = "disabled"
	}

	report("hub", s.hub.Ping(ctx))

	if s.mqtt != nil {
		report("mqtt", s.mqtt.HealthCheck(ctx))
	} else {
		components["mqtt"] = "disabled"
	}

	if s.influx != nil {
		report("influxdb", s.influx.HealthCheck(ctx))
	} else {
		components["influxdb"] = "disabled"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     status,
		Version:    s.version,
		Components: components,
	})
}

// ConfigCheckResponse relays the hub's configuration verdict.
type ConfigCheckResponse struct {
	Valid  bool   `json:"valid"`
	Result string `json:"result"`
	Errors string `json:"errors,omitempty"`
}

// handleCheckConfig asks the hub to validate its YAML configuration and
// passes the verdict through. Callers run this after an artifact write
// and before a restart, so a bad generated file never boot-loops the hub.
func (s *Server) handleCheckConfig(w http.ResponseWriter, r *http.Request) {
	result, err := s.hub.CheckConfig(r.Context())
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConfigCheckResponse{
		Valid:  result.Valid(),
		Result: result.Result,
		Errors: result.Errors,
	})
}

// handleRestartHub asks the hub to restart so freshly written artifacts
// take effect. The hub drops connections mid-restart; acceptance of the
// request is all that can be confirmed.
func (s *Server) handleRestartHub(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Restart(r.Context()); err != nil {
		s.writeHubError(w, err)
		return
	}

	s.auditLog("restart_hub", "", nil)
	writeJSON(w, http.StatusOK, map[string]any{"restarting": true})
}
