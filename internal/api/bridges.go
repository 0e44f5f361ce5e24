package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
)

// BridgeListResponse lists the bridge config entries available on the hub.
type BridgeListResponse struct {
	Bridges []homeassistant.ConfigEntry `json:"bridges"`
	Count   int                         `json:"count"`
}

// handleListBridges returns every HomeKit bridge config entry the hub
// knows about, managed or not.
func (s *Server) handleListBridges(w http.ResponseWriter, r *http.Request) {
	bridges, err := s.bridges.ListBridges(r.Context())
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BridgeListResponse{Bridges: bridges, Count: len(bridges)})
}

// SetBridgeRequest selects the managed HomeKit bridge. A null entry_id
// clears the selection.
type SetBridgeRequest struct {
	EntryID *string `json:"entry_id"`
}

// handleSetBridge points the HomeKit assistant at a bridge config entry.
// The entry must exist on the hub; clearing always succeeds.
func (s *Server) handleSetBridge(w http.ResponseWriter, r *http.Request) {
	var req SetBridgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.SetBridgeID(r.Context(), req.EntryID); err != nil {
		s.writeCommandError(w, err)
		return
	}

	details := map[string]any{"cleared": req.EntryID == nil}
	if req.EntryID != nil {
		details["entry_id"] = *req.EntryID
	}
	s.recordMutation("set_bridge", exposure.AssistantHomeKit, details)
	s.respondWithDocument(r.Context(), w)
}

// handlePushToBridge reconciles the selected bridge's accessory filter
// with the resolved exposure set and reports the diff it applied.
func (s *Server) handlePushToBridge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start := time.Now()
	res, err := s.bridges.Push(ctx)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordBridgeSync("push", res.EntryID, len(res.Added), len(res.Removed), len(res.Failed), time.Since(start))
	s.auditLog("sync_push", exposure.AssistantHomeKit, map[string]any{
		"entry_id": res.EntryID,
		"added":    len(res.Added),
		"removed":  len(res.Removed),
		"failed":   len(res.Failed),
	})

	writeJSON(w, http.StatusOK, res)
}

// PullRequest chooses how adopted bridge state combines with the stored
// HomeKit configuration. An empty merge defaults to replace.
type PullRequest struct {
	Merge string `json:"merge,omitempty"`
}

// PullResponse carries what was adopted plus the updated document.
type PullResponse struct {
	Result   homekit.PullResult `json:"result"`
	Document *exposure.Document `json:"document"`
}

// handlePullFromBridge adopts the bridge's live inclusion set into the
// stored HomeKit configuration. The body is optional.
func (s *Server) handlePullFromBridge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	merge, err := homekit.ParseMergeMode(req.Merge)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	start := time.Now()
	res, err := s.bridges.Pull(ctx, merge)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	s.recordBridgeSync("pull", res.EntryID, len(res.Entities), 0, 0, time.Since(start))
	s.auditLog("sync_pull", exposure.AssistantHomeKit, map[string]any{
		"entry_id": res.EntryID,
		"entities": len(res.Entities),
		"merge":    string(merge),
	})

	doc, ok := s.currentDocument(ctx, w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PullResponse{Result: res, Document: doc})
}

// recordBridgeSync writes a sync outcome to the metrics sink and
// announces it on the event bus.
func (s *Server) recordBridgeSync(direction, entryID string, added, removed, failed int, elapsed time.Duration) {
	if s.influx != nil {
		s.influx.WriteSyncMetric(direction, added, removed, failed, elapsed)
	}
	if s.mqtt != nil {
		if err := s.mqtt.PublishBridgeSync(direction, entryID, added, removed, failed); err != nil {
			s.logger.Warn("sync announcement failed", "direction", direction, "error", err)
		}
	}
}
