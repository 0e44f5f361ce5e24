package homeassistant

import (
	"encoding/json"
	"time"
)

// State is an entity state as returned by the states API.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// FriendlyName returns the friendly_name attribute, or "" when unset.
func (s State) FriendlyName() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok {
		return name
	}
	return ""
}

// EntityEntry is an entity registry entry.
type EntityEntry struct {
	EntityID     string `json:"entity_id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	AreaID       string `json:"area_id"`
	DeviceID     string `json:"device_id"`
	Platform     string `json:"platform"`
	DisabledBy   string `json:"disabled_by"`
	HiddenBy     string `json:"hidden_by"`
}

// IsDisabled reports whether the entity is disabled in Home Assistant.
func (e EntityEntry) IsDisabled() bool {
	return e.DisabledBy != ""
}

// DeviceEntry is a device registry entry.
type DeviceEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NameByUser   string `json:"name_by_user"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	AreaID       string `json:"area_id"`
	DisabledBy   string `json:"disabled_by"`
}

// DisplayName returns the user-assigned device name when set, otherwise
// the integration-provided one.
func (d DeviceEntry) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

// Area is an area registry entry.
type Area struct {
	AreaID  string   `json:"area_id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// ConfigEntry is a config entry as returned by the config entries API.
type ConfigEntry struct {
	EntryID         string `json:"entry_id"`
	Domain          string `json:"domain"`
	Title           string `json:"title"`
	State           string `json:"state"`
	SupportsOptions bool   `json:"supports_options"`
}

// AccessoryFilter is a HomeKit bridge's entity filter as carried by its
// config-entry options: the allowed domains plus an include or exclude
// entity list.
type AccessoryFilter struct {
	// Mode is "include" or "exclude" and decides how Entities is read.
	Mode string

	// Domains the bridge considers at all. Empty means every domain the
	// bridge supports.
	Domains []string

	// Entities is the include list in include mode, the exclude list in
	// exclude mode.
	Entities []string
}

// Accessory filter modes.
const (
	FilterInclude = "include"
	FilterExclude = "exclude"
)

// ConfigCheckResult is the outcome of a core configuration check.
type ConfigCheckResult struct {
	Result string `json:"result"`
	Errors string `json:"errors"`
}

// Valid reports whether the configuration check passed.
func (r ConfigCheckResult) Valid() bool {
	return r.Result == "valid"
}

// flowStep is one step of a config-entry options flow.
type flowStep struct {
	Type       string      `json:"type"` // form, create_entry, abort
	FlowID     string      `json:"flow_id"`
	StepID     string      `json:"step_id"`
	DataSchema []flowField `json:"data_schema"`
	Reason     string      `json:"reason"`
}

// flowField is one field of a flow step's form schema. Default carries
// the current value, which is how option state is read back out.
type flowField struct {
	Name     string          `json:"name"`
	Default  json.RawMessage `json:"default"`
	Optional bool            `json:"optional"`
}

// defaultStrings decodes a field default as a string list.
func (f flowField) defaultStrings() []string {
	if len(f.Default) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(f.Default, &out); err != nil {
		return nil
	}
	return out
}

// defaultString decodes a field default as a single string.
func (f flowField) defaultString() string {
	if len(f.Default) == 0 {
		return ""
	}
	var out string
	if err := json.Unmarshal(f.Default, &out); err != nil {
		return ""
	}
	return out
}

// field returns the named schema field, if present.
func (s *flowStep) field(name string) (flowField, bool) {
	for _, f := range s.DataSchema {
		if f.Name == name {
			return f, true
		}
	}
	return flowField{}, false
}
