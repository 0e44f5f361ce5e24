package mqtt

import "fmt"

// Topic prefixes for voicebridge announcements.
//
// The service is a publisher only: it announces configuration churn and
// operation outcomes so dashboards and automations on the same broker can
// react without polling the HTTP API.
const (
	// TopicPrefix is the base for all voicebridge topics.
	TopicPrefix = "voicebridge"

	// TopicPrefixSystem is the base for system status topics.
	TopicPrefixSystem = "voicebridge/system"

	// TopicPrefixEvent is the base for event announcement topics.
	TopicPrefixEvent = "voicebridge/event"
)

// Topics provides builders for voicebridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.SystemStatus()
//	// Returns: "voicebridge/system/status"
type Topics struct{}

// SystemStatus returns the service status topic.
//
// Online/offline payloads and the Last Will message are published here,
// retained, so subscribers always see the current liveness state.
//
// Example: voicebridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// ConfigChanged returns the topic for configuration mutation events.
//
// One message per persisted mutation (mode change, filter edit, alias
// update, save), carrying the action name and affected assistant.
//
// Example: voicebridge/event/config
func (Topics) ConfigChanged() string {
	return fmt.Sprintf("%s/config", TopicPrefixEvent)
}

// ArtifactsWritten returns the topic for artifact write outcomes.
//
// Published after a write run completes, with the per-assistant
// written/error breakdown.
//
// Example: voicebridge/event/artifacts
func (Topics) ArtifactsWritten() string {
	return fmt.Sprintf("%s/artifacts", TopicPrefixEvent)
}

// BridgeSync returns the topic for HomeKit bridge synchronisation outcomes.
//
// Published after a push or pull completes, with add/remove/failure counts.
//
// Example: voicebridge/event/sync
func (Topics) BridgeSync() string {
	return fmt.Sprintf("%s/sync", TopicPrefixEvent)
}

// AllEvents returns a pattern matching all voicebridge event topics.
//
// Pattern: voicebridge/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvent)
}

// AllTopics returns a pattern matching all voicebridge topics.
//
// Pattern: voicebridge/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
