package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event payloads published by voicebridge. Consumers on the same broker
// decode these to track configuration churn without polling the HTTP API.

// ConfigChangedEvent announces a persisted mutation to the exposure document.
type ConfigChangedEvent struct {
	// Action is the command that caused the mutation (e.g. "set_mode",
	// "update_filter", "save_all").
	Action string `json:"action"`

	// Assistant is the affected assistant, empty for mutations that touch
	// the shared document.
	Assistant string `json:"assistant,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ArtifactOutcome records the per-assistant result of an artifact write run.
type ArtifactOutcome struct {
	Written bool   `json:"written"`
	Error   string `json:"error,omitempty"`
}

// ArtifactsWrittenEvent announces the outcome of an artifact write run.
type ArtifactsWrittenEvent struct {
	Results   map[string]ArtifactOutcome `json:"results"`
	Timestamp time.Time                  `json:"timestamp"`
}

// BridgeSyncEvent announces a completed HomeKit bridge push or pull.
type BridgeSyncEvent struct {
	// Direction is "push" or "pull".
	Direction string `json:"direction"`

	// EntryID identifies the bridge config entry that was synchronised.
	EntryID string `json:"entry_id"`

	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishConfigChanged announces a persisted configuration mutation.
//
// Parameters:
//   - action: The command name that caused the mutation
//   - assistant: The affected assistant, or empty for shared mutations
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) PublishConfigChanged(action, assistant string) error {
	event := ConfigChangedEvent{
		Action:    action,
		Assistant: assistant,
		Timestamp: time.Now().UTC(),
	}
	return c.publishEvent(Topics{}.ConfigChanged(), event)
}

// PublishArtifactsWritten announces the outcome of an artifact write run.
//
// The results map is keyed by assistant name, with per-assistant
// written/error outcomes.
func (c *Client) PublishArtifactsWritten(results map[string]ArtifactOutcome) error {
	event := ArtifactsWrittenEvent{
		Results:   results,
		Timestamp: time.Now().UTC(),
	}
	return c.publishEvent(Topics{}.ArtifactsWritten(), event)
}

// PublishBridgeSync announces a completed HomeKit bridge push or pull.
func (c *Client) PublishBridgeSync(direction, entryID string, added, removed, failed int) error {
	event := BridgeSyncEvent{
		Direction: direction,
		EntryID:   entryID,
		Added:     added,
		Removed:   removed,
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	}
	return c.publishEvent(Topics{}.BridgeSync(), event)
}

// publishEvent marshals an event and publishes it at the configured QoS.
// Events are never retained: they describe moments, not state.
func (c *Client) publishEvent(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), false)
}
