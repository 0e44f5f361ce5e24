package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/store"
)

// handleUpdateSettings replaces the integration settings for one
// assistant. HomeKit carries no settings block, only a bridge selection,
// so it is rejected here.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	assistant := exposure.Assistant(chi.URLParam(r, "assistant"))

	switch assistant {
	case exposure.AssistantGoogle:
		var settings exposure.GoogleSettings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		if err := s.store.SetGoogleSettings(r.Context(), settings); err != nil {
			s.writeCommandError(w, err)
			return
		}
	case exposure.AssistantAlexa:
		var settings exposure.AlexaSettings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		if err := s.store.SetAlexaSettings(r.Context(), settings); err != nil {
			s.writeCommandError(w, err)
			return
		}
	default:
		writeBadRequest(w, "settings are only supported for google and alexa")
		return
	}

	s.recordMutation("update_settings", assistant, nil)
	s.respondWithDocument(r.Context(), w)
}

// SaveAllRequest is a whole-document upsert. Absent fields are left
// untouched; homekit_entry_id distinguishes absent (untouched) from
// explicit null (clear the bridge selection).
type SaveAllRequest struct {
	Mode                *exposure.Mode           `json:"mode,omitempty"`
	FilterConfig        *exposure.FilterConfig   `json:"filter_config,omitempty"`
	Aliases             map[string]string        `json:"aliases,omitempty"`
	GoogleFilterConfig  *exposure.FilterConfig   `json:"google_filter_config,omitempty"`
	GoogleAliases       map[string]string        `json:"google_aliases,omitempty"`
	AlexaFilterConfig   *exposure.FilterConfig   `json:"alexa_filter_config,omitempty"`
	AlexaAliases        map[string]string        `json:"alexa_aliases,omitempty"`
	HomeKitFilterConfig *exposure.FilterConfig   `json:"homekit_filter_config,omitempty"`
	HomeKitEntryID      json.RawMessage          `json:"homekit_entry_id,omitempty"`
	GoogleSettings      *exposure.GoogleSettings `json:"google_settings,omitempty"`
	AlexaSettings       *exposure.AlexaSettings  `json:"alexa_settings,omitempty"`
}

// handleSaveAll applies a whole-document upsert in one atomic store
// mutation. Used by the frontend save button to flush every staged edit
// at once.
func (s *Server) handleSaveAll(w http.ResponseWriter, r *http.Request) {
	var req SaveAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	storeReq := store.SaveAllRequest{
		Mode:                req.Mode,
		FilterConfig:        req.FilterConfig,
		Aliases:             req.Aliases,
		GoogleFilterConfig:  req.GoogleFilterConfig,
		GoogleAliases:       req.GoogleAliases,
		AlexaFilterConfig:   req.AlexaFilterConfig,
		AlexaAliases:        req.AlexaAliases,
		HomeKitFilterConfig: req.HomeKitFilterConfig,
		GoogleSettings:      req.GoogleSettings,
		AlexaSettings:       req.AlexaSettings,
	}

	if len(req.HomeKitEntryID) > 0 {
		storeReq.HomeKitEntryIDSet = true
		var entryID *string
		if err := json.Unmarshal(req.HomeKitEntryID, &entryID); err != nil {
			writeBadRequest(w, "homekit_entry_id must be a string or null")
			return
		}
		storeReq.HomeKitEntryID = entryID
	}

	if err := s.store.SaveAll(r.Context(), storeReq); err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("save_all", "", nil)
	s.respondWithDocument(r.Context(), w)
}
