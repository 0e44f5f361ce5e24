package store

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/voicebridge/internal/exposure"
)

// Document schema versions. Version 1 is the legacy layout with flat
// exclusion lists; version 2 is the filter_config/overrides layout.
const (
	schemaVersionLegacy  = 1
	schemaVersionCurrent = 2
)

// legacyDocument is the version 1 layout: a single pair of exclusion
// lists and one alias map, with no modes, overrides, or per-assistant
// state.
type legacyDocument struct {
	ExcludedEntities []string          `json:"excluded_entities"`
	ExcludedDomains  []string          `json:"excluded_domains"`
	Aliases          map[string]string `json:"aliases"`
}

// migrateLegacy upgrades a version 1 payload to the current document
// layout. The exclusion lists become the shared filter config in
// exclude mode; the alias map carries over as the shared aliases;
// everything the old layout could not express starts at defaults.
func migrateLegacy(payload json.RawMessage) (*exposure.Document, error) {
	var legacy legacyDocument
	if err := json.Unmarshal(payload, &legacy); err != nil {
		return nil, fmt.Errorf("parsing legacy document: %w", err)
	}

	doc := exposure.DefaultDocument()
	doc.FilterConfig.FilterMode = exposure.FilterModeExclude
	doc.FilterConfig.AddDomains(legacy.ExcludedDomains...)
	doc.FilterConfig.AddEntities(legacy.ExcludedEntities...)
	for id, alias := range legacy.Aliases {
		doc.Aliases[id] = alias
	}

	return doc, nil
}

// decodeEnvelope turns a persisted envelope into a live document,
// upgrading legacy layouts. Returns the document and whether an upgrade
// happened (so the caller can persist the new layout immediately).
func decodeEnvelope(env *Envelope) (*exposure.Document, bool, error) {
	switch env.SchemaVersion {
	case schemaVersionCurrent:
		var doc exposure.Document
		if err := json.Unmarshal(env.Document, &doc); err != nil {
			return nil, false, fmt.Errorf("parsing document: %w", err)
		}
		normaliseDocument(&doc)
		return &doc, false, nil

	case schemaVersionLegacy:
		doc, err := migrateLegacy(env.Document)
		if err != nil {
			return nil, false, err
		}
		return doc, true, nil

	default:
		return nil, false, fmt.Errorf("%w: %d", ErrUnsupportedSchema, env.SchemaVersion)
	}
}

// normaliseDocument fills nil maps and zero-valued enums left by older
// writes so downstream code never branches on missing fields.
func normaliseDocument(doc *exposure.Document) {
	if doc.Mode == "" {
		doc.Mode = exposure.ModeLinked
	}
	if doc.Aliases == nil {
		doc.Aliases = map[string]string{}
	}
	if doc.GoogleAliases == nil {
		doc.GoogleAliases = map[string]string{}
	}
	if doc.AlexaAliases == nil {
		doc.AlexaAliases = map[string]string{}
	}
	for _, cfg := range []*exposure.FilterConfig{
		&doc.FilterConfig,
		&doc.GoogleFilterConfig,
		&doc.AlexaFilterConfig,
		&doc.HomeKitFilterConfig,
	} {
		if cfg.FilterMode == "" {
			cfg.FilterMode = exposure.FilterModeExclude
		}
	}
}
