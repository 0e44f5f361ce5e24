package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/voicebridge/internal/exposure"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EntityInfo supplies the directory metadata bulk operations need:
// display names for alias composition and device ids for device
// exclusion. Implementations must be safe for concurrent use.
type EntityInfo interface {
	DisplayName(entityID string) string
	DeviceID(entityID string) string
}

// BridgeChecker validates that a bridge entry id references an existing
// bridge before the store accepts it.
type BridgeChecker interface {
	BridgeExists(ctx context.Context, entryID string) (bool, error)
}

// Store owns the configuration document. Every mutation is a single
// logical read-modify-write: the mutex is held across merge and persist
// so concurrent commands cannot interleave and lose updates. The
// in-memory document only advances when persistence succeeds, which
// keeps memory and disk consistent across storage faults.
//
// Callers receive deep-copied snapshots and explicit handles; the
// document is never reachable by direct reference.
type Store struct {
	repo   Repository
	info   EntityInfo
	logger Logger

	// mu guards doc and bridges, and serialises each mutation
	// end-to-end including persistence.
	mu      sync.Mutex
	doc     *exposure.Document
	bridges BridgeChecker
}

// Deps contains the dependencies for creating a Store.
type Deps struct {
	// Repository persists the document. Required.
	Repository Repository

	// EntityInfo resolves display names and device ids for bulk
	// operations. Optional; without it device exclusion matches nothing
	// and alias composition falls back to entity ids.
	EntityInfo EntityInfo

	// Logger for store events. Optional; defaults to no-op.
	Logger Logger
}

// New creates a Store. Load must be called before any other operation.
func New(deps Deps) (*Store, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("store: repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		repo:   deps.Repository,
		info:   deps.EntityInfo,
		logger: logger,
	}, nil
}

// SetBridgeChecker wires the bridge validator. Set after construction
// because the bridge manager itself depends on the store.
func (s *Store) SetBridgeChecker(bc BridgeChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bridges = bc
}

// Load reads the persisted document into memory, creating defaults on
// first run and upgrading legacy layouts in place. Call once at startup.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.repo.Load(ctx)
	if err == nil {
		doc, upgraded, decodeErr := decodeEnvelope(env)
		if decodeErr != nil {
			return decodeErr
		}
		if upgraded {
			if persistErr := s.persist(ctx, doc); persistErr != nil {
				return persistErr
			}
			s.logger.Info("configuration document upgraded",
				"from_version", env.SchemaVersion,
				"to_version", schemaVersionCurrent,
			)
		}
		s.doc = doc
		s.logger.Info("configuration document loaded", "mode", doc.Mode)
		return nil
	}

	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// First run: create defaults and persist immediately so the row
	// exists before any mutation.
	doc := exposure.DefaultDocument()
	if persistErr := s.persist(ctx, doc); persistErr != nil {
		return persistErr
	}
	s.doc = doc
	s.logger.Info("configuration document created with defaults")
	return nil
}

// State returns a deep-copied snapshot of the document.
func (s *Store) State(ctx context.Context) (*exposure.Document, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	return s.doc.DeepCopy(), nil
}

// SetMode switches between linked and separate filter configuration.
func (s *Store) SetMode(ctx context.Context, mode exposure.Mode) error {
	if err := exposure.ValidateMode(mode); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.Mode = mode
		return nil
	})
}

// SetFilterMode sets only the filter_mode field on the targeted filter
// config (shared when assistant is empty).
func (s *Store) SetFilterMode(ctx context.Context, mode exposure.FilterMode, assistant exposure.Assistant) error {
	if err := exposure.ValidateFilterMode(mode); err != nil {
		return err
	}
	if err := exposure.ValidateAssistantTarget(assistant); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.TargetFilterConfig(assistant).FilterMode = mode
		return nil
	})
}

// MergeFilterConfig applies a partial filter-config update to the
// targeted config: absent fields keep their current values, present
// fields replace wholesale.
func (s *Store) MergeFilterConfig(ctx context.Context, patch exposure.FilterConfigPatch, assistant exposure.Assistant) error {
	if err := exposure.ValidateFilterConfigPatch(patch); err != nil {
		return err
	}
	if err := exposure.ValidateAssistantTarget(assistant); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.TargetFilterConfig(assistant).Apply(patch)
		return nil
	})
}

// SetDomains replaces the domains field of the targeted filter config.
func (s *Store) SetDomains(ctx context.Context, domains []string, assistant exposure.Assistant) error {
	for _, d := range domains {
		if err := exposure.ValidateDomainName(d); err != nil {
			return err
		}
	}
	if err := exposure.ValidateAssistantTarget(assistant); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		cfg := doc.TargetFilterConfig(assistant)
		cfg.Domains = []string{}
		cfg.AddDomains(domains...)
		return nil
	})
}

// ToggleOverride adds the entity to the targeted override list if
// absent or removes it if present. Returns true when added.
func (s *Store) ToggleOverride(ctx context.Context, entityID string, assistant exposure.Assistant) (bool, error) {
	if err := exposure.ValidateEntityID(entityID); err != nil {
		return false, err
	}
	if err := exposure.ValidateAssistantTarget(assistant); err != nil {
		return false, err
	}
	var added bool
	err := s.mutate(ctx, func(doc *exposure.Document) error {
		added = doc.TargetFilterConfig(assistant).ToggleOverride(entityID)
		return nil
	})
	return added, err
}

// SetAlias writes one alias entry on the targeted alias map. An empty
// alias deletes the entry so the platform-provided name applies again.
func (s *Store) SetAlias(ctx context.Context, entityID, alias string, assistant exposure.Assistant) error {
	if err := exposure.ValidateEntityID(entityID); err != nil {
		return err
	}
	if err := exposure.ValidateAlias(alias); err != nil {
		return err
	}
	if err := exposure.ValidateAssistantTarget(assistant); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		aliases, ok := doc.TargetAliases(assistant)
		if !ok {
			return exposure.ErrAliasesUnsupported
		}
		writeAlias(aliases, entityID, alias)
		return nil
	})
}

// SetAliases writes a batch of alias entries with SetAlias semantics.
func (s *Store) SetAliases(ctx context.Context, aliases map[string]string, assistant exposure.Assistant) error {
	for id, alias := range aliases {
		if err := exposure.ValidateEntityID(id); err != nil {
			return err
		}
		if err := exposure.ValidateAlias(alias); err != nil {
			return err
		}
	}
	if err := exposure.ValidateAssistantTarget(assistant); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		target, ok := doc.TargetAliases(assistant)
		if !ok {
			return exposure.ErrAliasesUnsupported
		}
		for id, alias := range aliases {
			writeAlias(target, id, alias)
		}
		return nil
	})
}

// BulkRequest is a bulk mutation over a batch of entity ids.
type BulkRequest struct {
	Action    exposure.BulkAction
	EntityIDs []string
	Value     string
	Assistant exposure.Assistant
}

// BulkUpdate applies one action to every entity id in the request.
// List mutations carry set semantics, so repeated calls are idempotent.
// Returns the number of entity ids processed.
//
// Composed aliases (prefix/suffix) are clamped to the alias length
// limit rather than failing the whole batch on one long display name.
func (s *Store) BulkUpdate(ctx context.Context, req BulkRequest) (int, error) {
	if err := exposure.ValidateBulkAction(req.Action); err != nil {
		return 0, err
	}
	if err := exposure.ValidateBulkEntityIDs(req.EntityIDs); err != nil {
		return 0, err
	}
	if err := exposure.ValidateAssistantTarget(req.Assistant); err != nil {
		return 0, err
	}
	if req.Action.RequiresValue() && req.Value == "" {
		return 0, fmt.Errorf("%w: action %q requires a value", exposure.ErrInvalidBulkAction, req.Action)
	}
	if req.Action.RequiresValue() {
		if err := exposure.ValidateAlias(req.Value); err != nil {
			return 0, err
		}
	}
	if req.Action.TouchesAliases() && req.Assistant == exposure.AssistantHomeKit {
		return 0, exposure.ErrAliasesUnsupported
	}

	err := s.mutate(ctx, func(doc *exposure.Document) error {
		return s.applyBulk(doc, req)
	})
	if err != nil {
		return 0, err
	}
	return len(req.EntityIDs), nil
}

// applyBulk mutates the document for one bulk request. Called under the
// store mutex with a working copy.
func (s *Store) applyBulk(doc *exposure.Document, req BulkRequest) error {
	cfg := doc.TargetFilterConfig(req.Assistant)

	switch req.Action {
	case exposure.BulkActionExclude:
		cfg.AddEntities(req.EntityIDs...)

	case exposure.BulkActionUnexclude:
		cfg.RemoveEntities(req.EntityIDs...)

	case exposure.BulkActionAddOverride:
		cfg.AddOverrides(req.EntityIDs...)

	case exposure.BulkActionRemoveOverride:
		cfg.RemoveOverrides(req.EntityIDs...)

	case exposure.BulkActionExcludeDomain:
		for _, id := range req.EntityIDs {
			cfg.AddDomains(entityDomain(id))
		}

	case exposure.BulkActionExcludeDevice:
		for _, id := range req.EntityIDs {
			deviceID := s.deviceID(id)
			if deviceID == "" {
				// Entity not backed by a device; nothing to exclude.
				continue
			}
			cfg.AddDevices(deviceID)
		}

	case exposure.BulkActionSetAliasPrefix, exposure.BulkActionSetAliasSuffix, exposure.BulkActionClearAlias:
		aliases, ok := doc.TargetAliases(req.Assistant)
		if !ok {
			return exposure.ErrAliasesUnsupported
		}
		for _, id := range req.EntityIDs {
			switch req.Action {
			case exposure.BulkActionSetAliasPrefix:
				aliases[id] = clampAlias(req.Value + s.displayName(id))
			case exposure.BulkActionSetAliasSuffix:
				aliases[id] = clampAlias(s.displayName(id) + req.Value)
			default:
				delete(aliases, id)
			}
		}
	}

	return nil
}

// SetGoogleSettings replaces the Google settings wholesale.
func (s *Store) SetGoogleSettings(ctx context.Context, settings exposure.GoogleSettings) error {
	if err := exposure.ValidateGoogleSettings(settings); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.GoogleSettings = settings
		return nil
	})
}

// SetAlexaSettings replaces the Alexa settings wholesale.
func (s *Store) SetAlexaSettings(ctx context.Context, settings exposure.AlexaSettings) error {
	if err := exposure.ValidateAlexaSettings(settings); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.AlexaSettings = settings
		return nil
	})
}

// SetBridgeID selects the HomeKit bridge. A nil id clears the
// selection; a non-nil id must reference an existing bridge.
func (s *Store) SetBridgeID(ctx context.Context, entryID *string) error {
	if entryID != nil {
		if err := s.checkBridge(ctx, *entryID); err != nil {
			return err
		}
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.HomeKitEntryID = entryID
		return nil
	})
}

// SaveAllRequest carries a whole-document upsert: every present field
// replaces its counterpart, absent fields are left untouched.
// HomeKitEntryIDSet distinguishes "clear the bridge" (set, nil value)
// from "leave it alone" (unset).
type SaveAllRequest struct {
	Mode                *exposure.Mode
	FilterConfig        *exposure.FilterConfig
	Aliases             map[string]string
	GoogleFilterConfig  *exposure.FilterConfig
	GoogleAliases       map[string]string
	AlexaFilterConfig   *exposure.FilterConfig
	AlexaAliases        map[string]string
	HomeKitFilterConfig *exposure.FilterConfig
	HomeKitEntryID      *string
	HomeKitEntryIDSet   bool
	GoogleSettings      *exposure.GoogleSettings
	AlexaSettings       *exposure.AlexaSettings
}

// SaveAll applies a whole-document upsert as one atomic mutation.
func (s *Store) SaveAll(ctx context.Context, req SaveAllRequest) error {
	if err := validateSaveAll(req); err != nil {
		return err
	}
	if req.HomeKitEntryIDSet && req.HomeKitEntryID != nil {
		if err := s.checkBridge(ctx, *req.HomeKitEntryID); err != nil {
			return err
		}
	}

	return s.mutate(ctx, func(doc *exposure.Document) error {
		if req.Mode != nil {
			doc.Mode = *req.Mode
		}
		if req.FilterConfig != nil {
			doc.FilterConfig = req.FilterConfig.DeepCopy()
		}
		if req.Aliases != nil {
			doc.Aliases = cleanAliases(req.Aliases)
		}
		if req.GoogleFilterConfig != nil {
			doc.GoogleFilterConfig = req.GoogleFilterConfig.DeepCopy()
		}
		if req.GoogleAliases != nil {
			doc.GoogleAliases = cleanAliases(req.GoogleAliases)
		}
		if req.AlexaFilterConfig != nil {
			doc.AlexaFilterConfig = req.AlexaFilterConfig.DeepCopy()
		}
		if req.AlexaAliases != nil {
			doc.AlexaAliases = cleanAliases(req.AlexaAliases)
		}
		if req.HomeKitFilterConfig != nil {
			doc.HomeKitFilterConfig = req.HomeKitFilterConfig.DeepCopy()
		}
		if req.HomeKitEntryIDSet {
			doc.HomeKitEntryID = req.HomeKitEntryID
		}
		if req.GoogleSettings != nil {
			doc.GoogleSettings = *req.GoogleSettings
		}
		if req.AlexaSettings != nil {
			doc.AlexaSettings = *req.AlexaSettings
		}
		return nil
	})
}

// validateSaveAll bounds-checks every present field before any of them
// is applied.
func validateSaveAll(req SaveAllRequest) error {
	if req.Mode != nil {
		if err := exposure.ValidateMode(*req.Mode); err != nil {
			return err
		}
	}
	for _, cfg := range []*exposure.FilterConfig{
		req.FilterConfig, req.GoogleFilterConfig, req.AlexaFilterConfig, req.HomeKitFilterConfig,
	} {
		if cfg == nil {
			continue
		}
		if err := exposure.ValidateFilterConfig(*cfg); err != nil {
			return err
		}
	}
	for _, aliases := range []map[string]string{req.Aliases, req.GoogleAliases, req.AlexaAliases} {
		for id, alias := range aliases {
			if err := exposure.ValidateEntityID(id); err != nil {
				return err
			}
			if err := exposure.ValidateAlias(alias); err != nil {
				return err
			}
		}
	}
	if req.GoogleSettings != nil {
		if err := exposure.ValidateGoogleSettings(*req.GoogleSettings); err != nil {
			return err
		}
	}
	if req.AlexaSettings != nil {
		if err := exposure.ValidateAlexaSettings(*req.AlexaSettings); err != nil {
			return err
		}
	}
	return nil
}

// SetLastGenerated records when an assistant's artifact or bridge state
// was last written.
func (s *Store) SetLastGenerated(ctx context.Context, assistant exposure.Assistant, t time.Time) error {
	if err := exposure.ValidateAssistant(assistant); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		ts := t.UTC()
		switch assistant {
		case exposure.AssistantGoogle:
			doc.LastGenerated.Google = &ts
		case exposure.AssistantAlexa:
			doc.LastGenerated.Alexa = &ts
		case exposure.AssistantHomeKit:
			doc.LastGenerated.HomeKit = &ts
		}
		return nil
	})
}

// ReplaceHomeKitConfig adopts a bridge-derived filter config as the
// HomeKit config and stamps the sync time, as one atomic mutation.
// Used by pull to make stored configuration reproduce live bridge
// exposure.
func (s *Store) ReplaceHomeKitConfig(ctx context.Context, cfg exposure.FilterConfig, syncedAt time.Time) error {
	if err := exposure.ValidateFilterConfig(cfg); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *exposure.Document) error {
		doc.HomeKitFilterConfig = cfg.DeepCopy()
		ts := syncedAt.UTC()
		doc.LastGenerated.HomeKit = &ts
		return nil
	})
}

// Reset restores the document to defaults. This is the explicit full
// reset; nothing else ever clears sibling fields.
func (s *Store) Reset(ctx context.Context) error {
	return s.mutate(ctx, func(doc *exposure.Document) error {
		*doc = *exposure.DefaultDocument()
		return nil
	})
}

// mutate runs one logical read-modify-write: it applies fn to a working
// copy, persists the result, and only then publishes it. The mutex is
// held across the whole sequence.
func (s *Store) mutate(ctx context.Context, fn func(*exposure.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return ErrNotLoaded
	}

	next := s.doc.DeepCopy()
	if err := fn(next); err != nil {
		return err
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}

	s.doc = next
	return nil
}

// persist serialises and saves a document. Failures are surfaced as
// retryable storage faults.
func (s *Store) persist(ctx context.Context, doc *exposure.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshalling document: %v", ErrStorage, err)
	}
	if err := s.repo.Save(ctx, schemaVersionCurrent, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// checkBridge verifies a bridge entry id references an existing bridge.
func (s *Store) checkBridge(ctx context.Context, entryID string) error {
	s.mu.Lock()
	bc := s.bridges
	s.mu.Unlock()

	if bc == nil {
		return fmt.Errorf("%w: bridge validation unavailable", ErrUnknownBridge)
	}
	exists, err := bc.BridgeExists(ctx, entryID)
	if err != nil {
		return fmt.Errorf("checking bridge %q: %w", entryID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownBridge, entryID)
	}
	return nil
}

// displayName resolves an entity's display name for alias composition,
// falling back to the entity id.
func (s *Store) displayName(entityID string) string {
	if s.info != nil {
		if name := s.info.DisplayName(entityID); name != "" {
			return name
		}
	}
	return entityID
}

// deviceID resolves an entity's backing device, or "" when unknown.
func (s *Store) deviceID(entityID string) string {
	if s.info == nil {
		return ""
	}
	return s.info.DeviceID(entityID)
}

// entityDomain extracts the domain part of an entity id.
func entityDomain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return entityID
}

// writeAlias applies one alias entry: empty values delete.
func writeAlias(aliases map[string]string, entityID, alias string) {
	trimmed := strings.TrimSpace(alias)
	if trimmed == "" {
		delete(aliases, entityID)
		return
	}
	aliases[entityID] = trimmed
}

// cleanAliases copies an alias map, dropping empty entries and trimming
// whitespace.
func cleanAliases(aliases map[string]string) map[string]string {
	out := make(map[string]string, len(aliases))
	for id, alias := range aliases {
		trimmed := strings.TrimSpace(alias)
		if trimmed == "" {
			continue
		}
		out[id] = trimmed
	}
	return out
}

// clampAlias bounds a composed alias to the alias length limit without
// splitting a multibyte rune at the cut.
func clampAlias(alias string) string {
	if len(alias) <= exposure.MaxAliasLength {
		return alias
	}
	cut := exposure.MaxAliasLength
	for cut > 0 && !utf8.RuneStart(alias[cut]) {
		cut--
	}
	return alias[:cut]
}
