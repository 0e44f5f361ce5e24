package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/store"
)

// SetAliasesRequest writes spoken-name aliases. Either a single
// entity_id/alias pair or a whole aliases map may be supplied; an empty
// alias deletes the entry.
type SetAliasesRequest struct {
	EntityID  string             `json:"entity_id,omitempty"`
	Alias     string             `json:"alias,omitempty"`
	Aliases   map[string]string  `json:"aliases,omitempty"`
	Assistant exposure.Assistant `json:"assistant,omitempty"`
}

// handleSetAliases writes one alias or a batch of aliases on the shared
// or a per-assistant alias map. HomeKit has no alias map and is rejected.
func (s *Server) handleSetAliases(w http.ResponseWriter, r *http.Request) {
	var req SetAliasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch {
	case req.EntityID != "":
		if err := s.store.SetAlias(r.Context(), req.EntityID, req.Alias, req.Assistant); err != nil {
			s.writeCommandError(w, err)
			return
		}
		s.recordMutation("set_alias", req.Assistant, map[string]any{
			"entity_id": req.EntityID,
			"cleared":   req.Alias == "",
		})
	case len(req.Aliases) > 0:
		if err := s.store.SetAliases(r.Context(), req.Aliases, req.Assistant); err != nil {
			s.writeCommandError(w, err)
			return
		}
		s.recordMutation("set_alias", req.Assistant, map[string]any{
			"count": len(req.Aliases),
		})
	default:
		writeBadRequest(w, "entity_id or aliases is required")
		return
	}

	s.respondWithDocument(r.Context(), w)
}

// BulkUpdateRequest applies one action to a batch of entity ids.
type BulkUpdateRequest struct {
	Action    exposure.BulkAction `json:"action"`
	EntityIDs []string            `json:"entity_ids"`
	Value     string              `json:"value,omitempty"`
	Assistant exposure.Assistant  `json:"assistant,omitempty"`
}

// BulkUpdateResponse reports how many entity ids were processed.
type BulkUpdateResponse struct {
	Processed int                `json:"processed"`
	Document  *exposure.Document `json:"document"`
}

// handleBulkUpdate applies a bulk action (expose/hide/override/alias
// composition) to up to 500 entities in one persisted mutation.
func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	processed, err := s.store.BulkUpdate(r.Context(), store.BulkRequest{
		Action:    req.Action,
		EntityIDs: req.EntityIDs,
		Value:     req.Value,
		Assistant: req.Assistant,
	})
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordMutation("bulk_update", req.Assistant, map[string]any{
		"action":    string(req.Action),
		"processed": processed,
	})

	doc, ok := s.currentDocument(r.Context(), w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BulkUpdateResponse{Processed: processed, Document: doc})
}
