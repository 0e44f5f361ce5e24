package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nerrad567/voicebridge/internal/exposure"
)

// SetModeRequest selects linked or separate assistant configuration.
type SetModeRequest struct {
	Mode exposure.Mode `json:"mode"`
}

// handleSetMode switches between linked and separate mode.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.SetMode(r.Context(), req.Mode); err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("set_mode", "", map[string]any{"mode": string(req.Mode)})
	s.respondWithDocument(r.Context(), w)
}

// SetFilterModeRequest switches a filter between exclude and include mode.
type SetFilterModeRequest struct {
	FilterMode exposure.FilterMode `json:"filter_mode"`
	Assistant  exposure.Assistant  `json:"assistant,omitempty"`
}

// handleSetFilterMode sets the filter mode on the shared or a per-assistant
// filter config. An empty assistant targets the shared config.
func (s *Server) handleSetFilterMode(w http.ResponseWriter, r *http.Request) {
	var req SetFilterModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.SetFilterMode(r.Context(), req.FilterMode, req.Assistant); err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("set_filter_mode", req.Assistant, map[string]any{
		"filter_mode": string(req.FilterMode),
	})
	s.respondWithDocument(r.Context(), w)
}

// UpdateFilterRequest is a partial filter-config update. Absent fields keep
// their current values; present fields replace wholesale.
type UpdateFilterRequest struct {
	Assistant exposure.Assistant `json:"assistant,omitempty"`
	exposure.FilterConfigPatch
}

// handleUpdateFilter merges a partial filter-config patch into the shared
// or a per-assistant filter config.
func (s *Server) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {
	var req UpdateFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.MergeFilterConfig(r.Context(), req.FilterConfigPatch, req.Assistant); err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("update_filter", req.Assistant, patchSummary(req.FilterConfigPatch))
	s.respondWithDocument(r.Context(), w)
}

// SetDomainsRequest replaces a filter config's domain list.
type SetDomainsRequest struct {
	Domains   []string           `json:"domains"`
	Assistant exposure.Assistant `json:"assistant,omitempty"`
}

// handleSetDomains replaces the domain list on the shared or a
// per-assistant filter config.
func (s *Server) handleSetDomains(w http.ResponseWriter, r *http.Request) {
	var req SetDomainsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.SetDomains(r.Context(), req.Domains, req.Assistant); err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("set_domains", req.Assistant, map[string]any{
		"domains": req.Domains,
	})
	s.respondWithDocument(r.Context(), w)
}

// ToggleOverrideRequest flips one entity's override membership.
type ToggleOverrideRequest struct {
	EntityID  string             `json:"entity_id"`
	Assistant exposure.Assistant `json:"assistant,omitempty"`
}

// ToggleOverrideResponse reports the resulting membership: added is true
// when the toggle put the entity into the override list.
type ToggleOverrideResponse struct {
	Added    bool               `json:"added"`
	Document *exposure.Document `json:"document"`
}

// handleToggleOverride flips an entity in the override list of the shared
// or a per-assistant filter config.
func (s *Server) handleToggleOverride(w http.ResponseWriter, r *http.Request) {
	var req ToggleOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	added, err := s.store.ToggleOverride(r.Context(), req.EntityID, req.Assistant)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("toggle_override", req.Assistant, map[string]any{
		"entity_id": req.EntityID,
		"added":     added,
	})

	doc, ok := s.currentDocument(r.Context(), w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ToggleOverrideResponse{Added: added, Document: doc})
}

// respondWithDocument writes the freshly-persisted document as the
// success body shared by the plain mutation handlers.
func (s *Server) respondWithDocument(ctx context.Context, w http.ResponseWriter) {
	doc, ok := s.currentDocument(ctx, w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}

// currentDocument fetches the document snapshot, writing the error
// response itself on failure.
func (s *Server) currentDocument(ctx context.Context, w http.ResponseWriter) (*exposure.Document, bool) {
	doc, err := s.store.State(ctx)
	if err != nil {
		s.writeCommandError(w, err)
		return nil, false
	}
	return doc, true
}

// patchSummary flattens a filter patch into audit details, recording only
// the fields the patch actually carried.
func patchSummary(p exposure.FilterConfigPatch) map[string]any {
	details := make(map[string]any)
	if p.FilterMode != nil {
		details["filter_mode"] = string(*p.FilterMode)
	}
	if p.Domains != nil {
		details["domains"] = len(*p.Domains)
	}
	if p.Entities != nil {
		details["entities"] = len(*p.Entities)
	}
	if p.Devices != nil {
		details["devices"] = len(*p.Devices)
	}
	if p.Overrides != nil {
		details["overrides"] = len(*p.Overrides)
	}
	return details
}
