package exposure

import (
	"fmt"
	"regexp"
	"strings"
)

// Input size limits. Every mutation is bounds-checked at the boundary so
// oversized payloads never reach the store or the generated artifacts.
const (
	MaxEntityIDLength     = 255
	MaxAliasLength        = 128
	MaxAdvancedYAMLLength = 10000
	MaxPathLength         = 512
	MaxProjectIDLength    = 128
	MaxPINLength          = 32

	// MaxBulkEntities caps entity ids per bulk call to bound the
	// worst-case work of a single command.
	MaxBulkEntities = 500
)

const (
	entityIDPattern = `^[a-z0-9_]+\.[a-z0-9_]+$`
	domainPattern   = `^[a-z0-9_]+$`
)

var (
	entityIDRegex = regexp.MustCompile(entityIDPattern)
	domainRegex   = regexp.MustCompile(domainPattern)
)

// Pre-computed validation sets for O(1) lookups.
var (
	validModes       map[Mode]struct{}
	validFilterModes map[FilterMode]struct{}
	validAssistants  map[Assistant]struct{}
	validBulkActions map[BulkAction]struct{}
)

func init() {
	validModes = make(map[Mode]struct{}, len(AllModes()))
	for _, m := range AllModes() {
		validModes[m] = struct{}{}
	}

	validFilterModes = make(map[FilterMode]struct{}, len(AllFilterModes()))
	for _, m := range AllFilterModes() {
		validFilterModes[m] = struct{}{}
	}

	validAssistants = make(map[Assistant]struct{}, len(AllAssistants()))
	for _, a := range AllAssistants() {
		validAssistants[a] = struct{}{}
	}

	validBulkActions = make(map[BulkAction]struct{}, len(AllBulkActions()))
	for _, a := range AllBulkActions() {
		validBulkActions[a] = struct{}{}
	}
}

// ValidateMode checks if a mode is valid.
func ValidateMode(mode Mode) error {
	if _, ok := validModes[mode]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

// ValidateFilterMode checks if a filter mode is valid.
func ValidateFilterMode(mode FilterMode) error {
	if _, ok := validFilterModes[mode]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFilterMode, mode)
}

// ValidateAssistant checks if an assistant is valid.
func ValidateAssistant(assistant Assistant) error {
	if _, ok := validAssistants[assistant]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidAssistant, assistant)
}

// ValidateAssistantTarget checks an assistant used to target a config.
// Empty is allowed and addresses the shared config.
func ValidateAssistantTarget(assistant Assistant) error {
	if assistant == "" {
		return nil
	}
	return ValidateAssistant(assistant)
}

// ValidateEntityID checks entity id shape (domain.object_id, lowercase
// alphanumeric and underscores) and length.
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEntityID)
	}
	if len(id) > MaxEntityIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidEntityID, MaxEntityIDLength)
	}
	if !entityIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidEntityID, id)
	}
	return nil
}

// ValidateDomainName checks a domain name (lowercase alphanumeric and
// underscores).
func ValidateDomainName(domain string) error {
	if domain == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDomain)
	}
	if !domainRegex.MatchString(domain) {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	return nil
}

// ValidateDeviceID checks a device id is present and bounded. Device ids
// are opaque platform identifiers, so only size is enforced.
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDeviceID)
	}
	if len(id) > MaxEntityIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidDeviceID, MaxEntityIDLength)
	}
	return nil
}

// ValidateAlias checks alias length and printability. An empty alias is
// valid: it clears the entry so the platform-provided name applies.
func ValidateAlias(alias string) error {
	if len(alias) > MaxAliasLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidAlias, MaxAliasLength)
	}
	if strings.ContainsAny(alias, "\x00\n\r") {
		return fmt.Errorf("%w: contains control characters", ErrInvalidAlias)
	}
	return nil
}

// ValidateFilterConfig validates every field of a full filter config.
func ValidateFilterConfig(c FilterConfig) error {
	if err := ValidateFilterMode(c.FilterMode); err != nil {
		return err
	}
	for _, d := range c.Domains {
		if err := ValidateDomainName(d); err != nil {
			return err
		}
	}
	for _, id := range c.Entities {
		if err := ValidateEntityID(id); err != nil {
			return err
		}
	}
	for _, id := range c.Devices {
		if err := ValidateDeviceID(id); err != nil {
			return err
		}
	}
	for _, id := range c.Overrides {
		if err := ValidateEntityID(id); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFilterConfigPatch validates the fields present on a partial
// filter-config update. Absent fields are skipped, never defaulted.
func ValidateFilterConfigPatch(p FilterConfigPatch) error {
	if p.FilterMode != nil {
		if err := ValidateFilterMode(*p.FilterMode); err != nil {
			return err
		}
	}
	if p.Domains != nil {
		for _, d := range *p.Domains {
			if err := ValidateDomainName(d); err != nil {
				return err
			}
		}
	}
	if p.Entities != nil {
		for _, id := range *p.Entities {
			if err := ValidateEntityID(id); err != nil {
				return err
			}
		}
	}
	if p.Devices != nil {
		for _, id := range *p.Devices {
			if err := ValidateDeviceID(id); err != nil {
				return err
			}
		}
	}
	if p.Overrides != nil {
		for _, id := range *p.Overrides {
			if err := ValidateEntityID(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateGoogleSettings bounds-checks Google Assistant settings.
func ValidateGoogleSettings(s GoogleSettings) error {
	if len(s.ProjectID) > MaxProjectIDLength {
		return fmt.Errorf("%w: project_id exceeds %d characters", ErrInvalidSettings, MaxProjectIDLength)
	}
	if len(s.ServiceAccountPath) > MaxPathLength {
		return fmt.Errorf("%w: service_account_path exceeds %d characters", ErrInvalidSettings, MaxPathLength)
	}
	if len(s.SecureDevicesPIN) > MaxPINLength {
		return fmt.Errorf("%w: secure_devices_pin exceeds %d characters", ErrInvalidSettings, MaxPINLength)
	}
	if len(s.AdvancedYAML) > MaxAdvancedYAMLLength {
		return fmt.Errorf("%w: advanced_yaml exceeds %d characters", ErrInvalidSettings, MaxAdvancedYAMLLength)
	}
	return nil
}

// ValidateAlexaSettings bounds-checks Alexa settings.
func ValidateAlexaSettings(s AlexaSettings) error {
	if len(s.AdvancedYAML) > MaxAdvancedYAMLLength {
		return fmt.Errorf("%w: advanced_yaml exceeds %d characters", ErrInvalidSettings, MaxAdvancedYAMLLength)
	}
	return nil
}

// ValidateBulkAction checks if a bulk action is valid.
func ValidateBulkAction(action BulkAction) error {
	if _, ok := validBulkActions[action]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidBulkAction, action)
}

// ValidateBulkEntityIDs checks bulk entity id count and each id's shape.
func ValidateBulkEntityIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no entity ids given", ErrInvalidEntityID)
	}
	if len(ids) > MaxBulkEntities {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyEntities, len(ids), MaxBulkEntities)
	}
	for _, id := range ids {
		if err := ValidateEntityID(id); err != nil {
			return err
		}
	}
	return nil
}
