package exposure

// Document is the single persisted configuration aggregate: mode, the
// shared and per-assistant filter configs and alias maps, assistant
// settings, the selected HomeKit bridge, and generation timestamps.
// It is mutated only through the store's merge operations; callers
// receive deep-copied snapshots.
//
// HomeKit carries no alias map: accessory names are managed on-device
// by the HomeKit ecosystem, not by generated configuration.
type Document struct {
	Mode Mode `json:"mode"`

	// Shared config and aliases, used by all assistants in linked mode.
	FilterConfig FilterConfig      `json:"filter_config"`
	Aliases      map[string]string `json:"aliases"`

	// Per-assistant configs and aliases, used in separate mode.
	GoogleFilterConfig  FilterConfig      `json:"google_filter_config"`
	GoogleAliases       map[string]string `json:"google_aliases"`
	AlexaFilterConfig   FilterConfig      `json:"alexa_filter_config"`
	AlexaAliases        map[string]string `json:"alexa_aliases"`
	HomeKitFilterConfig FilterConfig      `json:"homekit_filter_config"`

	// HomeKitEntryID is the config-entry id of the selected bridge.
	// Nil until a bridge is selected.
	HomeKitEntryID *string `json:"homekit_entry_id"`

	GoogleSettings GoogleSettings `json:"google_settings"`
	AlexaSettings  AlexaSettings  `json:"alexa_settings"`

	LastGenerated LastGenerated `json:"last_generated"`
}

// DefaultDocument returns the document created on first load.
func DefaultDocument() *Document {
	return &Document{
		Mode:                ModeLinked,
		FilterConfig:        DefaultFilterConfig(),
		Aliases:             map[string]string{},
		GoogleFilterConfig:  DefaultFilterConfig(),
		GoogleAliases:       map[string]string{},
		AlexaFilterConfig:   DefaultFilterConfig(),
		AlexaAliases:        map[string]string{},
		HomeKitFilterConfig: DefaultFilterConfig(),
		GoogleSettings:      DefaultGoogleSettings(),
	}
}

// DeepCopy creates a complete independent copy of the Document. All map
// and slice fields are cloned; mutating the copy never leaks into the
// original.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.FilterConfig = d.FilterConfig.DeepCopy()
	cpy.Aliases = copyAliases(d.Aliases)
	cpy.GoogleFilterConfig = d.GoogleFilterConfig.DeepCopy()
	cpy.GoogleAliases = copyAliases(d.GoogleAliases)
	cpy.AlexaFilterConfig = d.AlexaFilterConfig.DeepCopy()
	cpy.AlexaAliases = copyAliases(d.AlexaAliases)
	cpy.HomeKitFilterConfig = d.HomeKitFilterConfig.DeepCopy()

	if d.HomeKitEntryID != nil {
		id := *d.HomeKitEntryID
		cpy.HomeKitEntryID = &id
	}

	if d.LastGenerated.Google != nil {
		t := *d.LastGenerated.Google
		cpy.LastGenerated.Google = &t
	}
	if d.LastGenerated.Alexa != nil {
		t := *d.LastGenerated.Alexa
		cpy.LastGenerated.Alexa = &t
	}
	if d.LastGenerated.HomeKit != nil {
		t := *d.LastGenerated.HomeKit
		cpy.LastGenerated.HomeKit = &t
	}

	return &cpy
}

// TargetFilterConfig returns a pointer to the filter config a mutation
// addresses: the shared config when assistant is empty, otherwise that
// assistant's own config. Mode is deliberately ignored here; it only
// affects resolution, never which config a command writes.
func (d *Document) TargetFilterConfig(assistant Assistant) *FilterConfig {
	switch assistant {
	case AssistantGoogle:
		return &d.GoogleFilterConfig
	case AssistantAlexa:
		return &d.AlexaFilterConfig
	case AssistantHomeKit:
		return &d.HomeKitFilterConfig
	default:
		return &d.FilterConfig
	}
}

// TargetAliases returns the alias map a mutation addresses: shared when
// assistant is empty, per-assistant otherwise. Returns false for HomeKit,
// which has no alias map.
func (d *Document) TargetAliases(assistant Assistant) (map[string]string, bool) {
	switch assistant {
	case AssistantGoogle:
		if d.GoogleAliases == nil {
			d.GoogleAliases = map[string]string{}
		}
		return d.GoogleAliases, true
	case AssistantAlexa:
		if d.AlexaAliases == nil {
			d.AlexaAliases = map[string]string{}
		}
		return d.AlexaAliases, true
	case AssistantHomeKit:
		return nil, false
	default:
		if d.Aliases == nil {
			d.Aliases = map[string]string{}
		}
		return d.Aliases, true
	}
}

// EffectiveFilterConfig resolves the filter config an assistant's
// exposure derives from: the shared config in linked mode, the
// assistant's own in separate mode.
func (d *Document) EffectiveFilterConfig(assistant Assistant) FilterConfig {
	if d.Mode == ModeSeparate {
		return *d.TargetFilterConfig(assistant)
	}
	return d.FilterConfig
}

// EffectiveAliases resolves the alias map an assistant's artifact uses:
// shared in linked mode, per-assistant in separate mode. HomeKit always
// resolves to nil.
func (d *Document) EffectiveAliases(assistant Assistant) map[string]string {
	if assistant == AssistantHomeKit {
		return nil
	}
	if d.Mode == ModeSeparate {
		switch assistant {
		case AssistantGoogle:
			return d.GoogleAliases
		case AssistantAlexa:
			return d.AlexaAliases
		}
	}
	return d.Aliases
}

// IsGoogleComplete reports whether Google artifact generation has all
// required settings: enabled with a project id and service account path.
func (d *Document) IsGoogleComplete() bool {
	return d.GoogleSettings.Enabled &&
		d.GoogleSettings.ProjectID != "" &&
		d.GoogleSettings.ServiceAccountPath != ""
}

// IsAlexaComplete reports whether Alexa artifact generation is enabled.
func (d *Document) IsAlexaComplete() bool {
	return d.AlexaSettings.Enabled
}

// IsHomeKitComplete reports whether a bridge has been selected.
func (d *Document) IsHomeKitComplete() bool {
	return d.HomeKitEntryID != nil && *d.HomeKitEntryID != ""
}

// IsComplete reports completeness for the given assistant.
func (d *Document) IsComplete(assistant Assistant) bool {
	switch assistant {
	case AssistantGoogle:
		return d.IsGoogleComplete()
	case AssistantAlexa:
		return d.IsAlexaComplete()
	case AssistantHomeKit:
		return d.IsHomeKitComplete()
	default:
		return false
	}
}
