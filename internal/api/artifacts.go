package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/generator"
	"github.com/nerrad567/voicebridge/internal/infrastructure/mqtt"
)

// HomeKitPreview is the bridge assistant's preview form. HomeKit has no
// document; a push applies the inclusion set directly, so the preview
// reports that set instead.
type HomeKitPreview struct {
	Assistant exposure.Assistant `json:"assistant"`
	Entities  []string           `json:"entities"`
	Count     int                `json:"count"`
	Complete  bool               `json:"complete"`
}

// handlePreviewArtifacts renders artifacts without touching disk or
// bridge. With no assistant parameter all three are previewed.
//
// Query parameters:
//   - assistant: preview a single assistant ("google", "alexa", "homekit")
func (s *Server) handlePreviewArtifacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	targets := exposure.AllAssistants()
	if param := r.URL.Query().Get("assistant"); param != "" {
		assistant := exposure.Assistant(param)
		if err := exposure.ValidateAssistant(assistant); err != nil {
			s.writeCommandError(w, err)
			return
		}
		targets = []exposure.Assistant{assistant}
	}

	doc, err := s.store.State(ctx)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	entities := s.generatorEntities()

	previews := make(map[exposure.Assistant]any, len(targets))
	for _, assistant := range targets {
		if assistant == exposure.AssistantHomeKit {
			included, err := s.bridges.DesiredEntities(ctx)
			if err != nil {
				s.writeCommandError(w, err)
				return
			}
			previews[assistant] = HomeKitPreview{
				Assistant: assistant,
				Entities:  included,
				Count:     len(included),
				Complete:  doc.IsHomeKitComplete(),
			}
			continue
		}

		artifact, err := s.generator.Generate(doc, entities, assistant)
		if err != nil {
			s.writeCommandError(w, err)
			return
		}
		previews[assistant] = artifact
	}

	writeJSON(w, http.StatusOK, map[string]any{"previews": previews})
}

// ArtifactWriteResult reports one assistant's outcome from a write run.
// Sync is present only for the HomeKit push.
type ArtifactWriteResult struct {
	Written  bool                `json:"written"`
	Error    string              `json:"error,omitempty"`
	Entities int                 `json:"entities,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Sync     *homekit.SyncResult `json:"sync,omitempty"`
}

// handleWriteArtifacts writes every complete assistant's artifact and
// pushes the HomeKit bridge. Assistants are attempted independently; a
// failure in one never blocks the others, so the response always carries
// all three outcomes.
func (s *Server) handleWriteArtifacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := s.store.State(ctx)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	entities := s.generatorEntities()

	results := map[exposure.Assistant]ArtifactWriteResult{
		exposure.AssistantGoogle:  s.writeAssistantArtifact(ctx, doc, entities, exposure.AssistantGoogle),
		exposure.AssistantAlexa:   s.writeAssistantArtifact(ctx, doc, entities, exposure.AssistantAlexa),
		exposure.AssistantHomeKit: s.pushBridgeArtifact(ctx, doc),
	}

	s.announceArtifacts(results)
	s.auditLog("write_artifacts", "", artifactSummary(results))

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// writeAssistantArtifact writes one assistant's YAML artifact and stamps
// its generation time.
func (s *Server) writeAssistantArtifact(ctx context.Context, doc *exposure.Document, entities []generator.Entity, assistant exposure.Assistant) ArtifactWriteResult {
	if !doc.IsComplete(assistant) {
		return ArtifactWriteResult{Error: incompleteMessage(assistant)}
	}

	artifact, err := s.generator.Write(doc, entities, assistant)
	if err != nil {
		s.logger.Error("artifact write failed", "assistant", string(assistant), "error", err)
		s.recordArtifactMetric(assistant, false, artifact.Entities, len(artifact.Warnings))
		return ArtifactWriteResult{Error: err.Error()}
	}

	if err := s.store.SetLastGenerated(ctx, assistant, time.Now().UTC()); err != nil {
		s.logger.Warn("recording generation time failed", "assistant", string(assistant), "error", err)
	}

	s.recordArtifactMetric(assistant, true, artifact.Entities, len(artifact.Warnings))
	return ArtifactWriteResult{
		Written:  true,
		Entities: artifact.Entities,
		Warnings: artifact.Warnings,
	}
}

// pushBridgeArtifact reconciles the selected bridge as part of a write
// run. The manager stamps the generation time itself on success.
func (s *Server) pushBridgeArtifact(ctx context.Context, doc *exposure.Document) ArtifactWriteResult {
	if !doc.IsHomeKitComplete() {
		return ArtifactWriteResult{Error: "No HomeKit bridge configured"}
	}

	start := time.Now()
	res, err := s.bridges.Push(ctx)
	if err != nil {
		s.logger.Error("bridge push failed", "error", err)
		return ArtifactWriteResult{Error: err.Error()}
	}

	s.recordBridgeSync("push", res.EntryID, len(res.Added), len(res.Removed), len(res.Failed), time.Since(start))
	return ArtifactWriteResult{Written: true, Sync: &res}
}

// announceArtifacts publishes the per-assistant outcomes for any
// listeners on the event bus.
func (s *Server) announceArtifacts(results map[exposure.Assistant]ArtifactWriteResult) {
	if s.mqtt == nil {
		return
	}

	outcomes := make(map[string]mqtt.ArtifactOutcome, len(results))
	for assistant, result := range results {
		outcomes[string(assistant)] = mqtt.ArtifactOutcome{Written: result.Written, Error: result.Error}
	}
	if err := s.mqtt.PublishArtifactsWritten(outcomes); err != nil {
		s.logger.Warn("artifact announcement failed", "error", err)
	}
}

// recordArtifactMetric writes one assistant's outcome to the metrics
// sink, if one is configured.
func (s *Server) recordArtifactMetric(assistant exposure.Assistant, written bool, entities, warnings int) {
	if s.influx == nil {
		return
	}
	s.influx.WriteArtifactMetric(string(assistant), written, entities, warnings)
}

// artifactSummary condenses a write run for the audit trail.
func artifactSummary(results map[exposure.Assistant]ArtifactWriteResult) map[string]any {
	written := make([]string, 0, len(results))
	failed := make([]string, 0, len(results))
	for assistant, result := range results {
		if result.Written {
			written = append(written, string(assistant))
		} else {
			failed = append(failed, string(assistant))
		}
	}
	sort.Strings(written)
	sort.Strings(failed)
	return map[string]any{"written": written, "failed": failed}
}

// incompleteMessage names the missing prerequisite per assistant.
func incompleteMessage(assistant exposure.Assistant) string {
	switch assistant {
	case exposure.AssistantGoogle:
		return "Google Assistant settings incomplete or disabled"
	case exposure.AssistantAlexa:
		return "Alexa settings incomplete or disabled"
	default:
		return "No HomeKit bridge configured"
	}
}

// generatorEntities converts the directory snapshot into generator input.
func (s *Server) generatorEntities() []generator.Entity {
	records := s.directory.Entities()
	entities := make([]generator.Entity, 0, len(records))
	for _, rec := range records {
		entities = append(entities, generator.Entity{
			EntityID:    rec.EntityID,
			Domain:      rec.Domain,
			DeviceID:    rec.DeviceID,
			DisplayName: rec.DisplayName,
		})
	}
	return entities
}
