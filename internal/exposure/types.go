package exposure

import "time"

// Assistant identifies a voice-assistant exposure target.
type Assistant string

const (
	AssistantGoogle  Assistant = "google"
	AssistantAlexa   Assistant = "alexa"
	AssistantHomeKit Assistant = "homekit"
)

// AllAssistants returns every supported assistant.
func AllAssistants() []Assistant {
	return []Assistant{AssistantGoogle, AssistantAlexa, AssistantHomeKit}
}

// Mode selects how assistants share filter configuration.
type Mode string

const (
	// ModeLinked derives exposure for all assistants from the shared
	// filter config and alias map.
	ModeLinked Mode = "linked"

	// ModeSeparate gives each assistant its own filter config and alias map.
	ModeSeparate Mode = "separate"
)

// AllModes returns every supported mode.
func AllModes() []Mode {
	return []Mode{ModeLinked, ModeSeparate}
}

// FilterMode selects the polarity of list matching.
type FilterMode string

const (
	// FilterModeExclude exposes everything except matched entities.
	FilterModeExclude FilterMode = "exclude"

	// FilterModeInclude exposes only matched entities.
	FilterModeInclude FilterMode = "include"
)

// AllFilterModes returns every supported filter mode.
func AllFilterModes() []FilterMode {
	return []FilterMode{FilterModeExclude, FilterModeInclude}
}

// FilterConfig holds the layered matching rules that decide entity exposure.
// The list fields carry set semantics: membership is what matters, order is
// preserved only for stable serialisation.
type FilterConfig struct {
	FilterMode FilterMode `json:"filter_mode"`
	Domains    []string   `json:"domains"`
	Entities   []string   `json:"entities"`
	Devices    []string   `json:"devices"`
	Overrides  []string   `json:"overrides"`
}

// DefaultFilterConfig returns the initial filter configuration: exclude
// mode with no match lists, so every entity is exposed.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		FilterMode: FilterModeExclude,
		Domains:    []string{},
		Entities:   []string{},
		Devices:    []string{},
		Overrides:  []string{},
	}
}

// DeepCopy creates an independent copy of the FilterConfig.
func (c FilterConfig) DeepCopy() FilterConfig {
	cpy := c
	cpy.Domains = copyStrings(c.Domains)
	cpy.Entities = copyStrings(c.Entities)
	cpy.Devices = copyStrings(c.Devices)
	cpy.Overrides = copyStrings(c.Overrides)
	return cpy
}

// FilterConfigPatch is a partial filter-config update. Nil fields are
// left untouched by Apply; non-nil fields replace wholesale.
type FilterConfigPatch struct {
	FilterMode *FilterMode `json:"filter_mode,omitempty"`
	Domains    *[]string   `json:"domains,omitempty"`
	Entities   *[]string   `json:"entities,omitempty"`
	Devices    *[]string   `json:"devices,omitempty"`
	Overrides  *[]string   `json:"overrides,omitempty"`
}

// Apply merges the patch into the config. Absent (nil) fields retain
// their current values; present fields replace, never union.
func (c *FilterConfig) Apply(p FilterConfigPatch) {
	if p.FilterMode != nil {
		c.FilterMode = *p.FilterMode
	}
	if p.Domains != nil {
		c.Domains = copyStrings(*p.Domains)
	}
	if p.Entities != nil {
		c.Entities = copyStrings(*p.Entities)
	}
	if p.Devices != nil {
		c.Devices = copyStrings(*p.Devices)
	}
	if p.Overrides != nil {
		c.Overrides = copyStrings(*p.Overrides)
	}
}

// GoogleSettings holds the Google Assistant integration settings.
type GoogleSettings struct {
	Enabled            bool   `json:"enabled"`
	ProjectID          string `json:"project_id"`
	ServiceAccountPath string `json:"service_account_path"`
	ReportState        bool   `json:"report_state"`
	SecureDevicesPIN   string `json:"secure_devices_pin"`
	AdvancedYAML       string `json:"advanced_yaml"`
}

// DefaultGoogleSettings returns the initial Google settings.
func DefaultGoogleSettings() GoogleSettings {
	return GoogleSettings{ReportState: true}
}

// AlexaSettings holds the Amazon Alexa integration settings.
type AlexaSettings struct {
	Enabled      bool   `json:"enabled"`
	AdvancedYAML string `json:"advanced_yaml"`
}

// LastGenerated records when each assistant's artifact or bridge state
// was last written. Nil means never.
type LastGenerated struct {
	Google  *time.Time `json:"google"`
	Alexa   *time.Time `json:"alexa"`
	HomeKit *time.Time `json:"homekit"`
}

// copyStrings clones a string slice, preserving nil vs empty distinction.
func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	cpy := make([]string, len(s))
	copy(cpy, s)
	return cpy
}

// copyAliases clones an alias map.
func copyAliases(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cpy := make(map[string]string, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}
