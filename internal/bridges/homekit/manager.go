package homekit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/voicebridge/internal/exposure"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller drives a HomeKit bridge's config entry on the hub.
// Satisfied by *homeassistant.Client.
type Controller interface {
	// HomeKitBridges lists the hub's HomeKit config entries.
	HomeKitBridges(ctx context.Context) ([]homeassistant.ConfigEntry, error)

	// AccessoryFilter reads a bridge's current accessory filter.
	AccessoryFilter(ctx context.Context, entryID string) (homeassistant.AccessoryFilter, error)

	// SetAccessoryFilter replaces a bridge's accessory filter.
	SetAccessoryFilter(ctx context.Context, entryID string, filter homeassistant.AccessoryFilter) error
}

// ConfigStore supplies the configuration document and records sync
// outcomes. Satisfied by *store.Store.
type ConfigStore interface {
	State(ctx context.Context) (*exposure.Document, error)
	ReplaceHomeKitConfig(ctx context.Context, cfg exposure.FilterConfig, syncedAt time.Time) error
	SetLastGenerated(ctx context.Context, assistant exposure.Assistant, t time.Time) error
}

// EntityDirectory supplies the candidate entity universe. Satisfied by
// *homeassistant.Directory.
type EntityDirectory interface {
	Universe() []exposure.Entity
}

// MergeMode selects how Pull treats HomeKit configuration that already
// exists in the document.
type MergeMode string

const (
	// MergeReplace discards existing HomeKit overrides; the stored
	// config afterwards reproduces the bridge's live exposure exactly.
	MergeReplace MergeMode = "replace"

	// MergeKeep retains existing overrides whose entities still exist
	// on the hub, so deliberate exceptions survive the adoption.
	MergeKeep MergeMode = "keep"
)

// ParseMergeMode parses a merge mode, defaulting empty input to
// MergeReplace.
func ParseMergeMode(s string) (MergeMode, error) {
	switch s {
	case "", string(MergeReplace):
		return MergeReplace, nil
	case string(MergeKeep):
		return MergeKeep, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMergeMode, s)
}

// SyncFailure records one entity the bridge refused during a push.
type SyncFailure struct {
	EntityID string `json:"entity_id"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

// SyncResult reports what a push changed on the bridge.
type SyncResult struct {
	EntryID string        `json:"entry_id"`
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
	Failed  []SyncFailure `json:"failed"`
}

// PullResult reports the configuration adopted from the bridge.
type PullResult struct {
	EntryID   string   `json:"entry_id"`
	Entities  []string `json:"entities"`
	Overrides []string `json:"overrides"`
}

// Manager reconciles a HomeKit bridge's accessory set with resolved
// configuration, in both directions. Push and Pull are explicit
// one-shot operations; there is no background loop.
//
// Thread Safety: all methods are safe for concurrent use. The manager
// itself holds no mutable state; consistency comes from the store's
// mutation serialisation.
type Manager struct {
	controller Controller
	store      ConfigStore
	directory  EntityDirectory
	logger     Logger
}

// ManagerOptions holds dependencies for creating a Manager.
type ManagerOptions struct {
	// Controller drives bridge config entries on the hub. Required.
	Controller Controller

	// Store supplies and records configuration. Required.
	Store ConfigStore

	// Directory supplies the entity universe. Required.
	Directory EntityDirectory

	// Logger is optional; defaults to no-op.
	Logger Logger
}

// NewManager creates a Manager.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("homekit: controller is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("homekit: config store is required")
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("homekit: entity directory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Manager{
		controller: opts.Controller,
		store:      opts.Store,
		directory:  opts.Directory,
		logger:     logger,
	}, nil
}

// ListBridges returns the hub's HomeKit bridge config entries.
func (m *Manager) ListBridges(ctx context.Context) ([]homeassistant.ConfigEntry, error) {
	entries, err := m.controller.HomeKitBridges(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing bridges: %w", ErrBridgeRejected, err)
	}
	return entries, nil
}

// GetBridge returns one bridge config entry by id.
func (m *Manager) GetBridge(ctx context.Context, entryID string) (homeassistant.ConfigEntry, error) {
	entries, err := m.controller.HomeKitBridges(ctx)
	if err != nil {
		return homeassistant.ConfigEntry{}, fmt.Errorf("%w: listing bridges: %w", ErrBridgeRejected, err)
	}
	for _, entry := range entries {
		if entry.EntryID == entryID {
			return entry, nil
		}
	}
	return homeassistant.ConfigEntry{}, fmt.Errorf("%w: %s", ErrBridgeNotFound, entryID)
}

// BridgeExists reports whether a bridge config entry exists. The store
// uses this to validate bridge selection.
func (m *Manager) BridgeExists(ctx context.Context, entryID string) (bool, error) {
	_, err := m.GetBridge(ctx, entryID)
	if errors.Is(err, ErrBridgeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DesiredEntities resolves the inclusion set a push would apply: the
// HomeKit-effective filter config evaluated over the supported-domain
// universe.
func (m *Manager) DesiredEntities(ctx context.Context) ([]string, error) {
	doc, err := m.store.State(ctx)
	if err != nil {
		return nil, err
	}
	return resolveDesired(doc, supportedUniverse(m.directory.Universe())), nil
}

// Push reconciles the bridge to the resolved exposure set. It diffs the
// bridge's current inclusion set against the desired one and applies
// one add or remove per filter update, so a single rejected entity
// never aborts the rest. Applied changes are not rolled back; failures
// are collected per entity.
func (m *Manager) Push(ctx context.Context) (SyncResult, error) {
	doc, err := m.store.State(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	entryID, err := selectedBridge(doc)
	if err != nil {
		return SyncResult{}, err
	}

	filter, err := m.readFilter(ctx, entryID)
	if err != nil {
		return SyncResult{}, err
	}

	universe := supportedUniverse(m.directory.Universe())
	desired := resolveDesired(doc, universe)
	current := includedEntities(filter, universe)
	adds, removes := diffSets(current, desired)

	result := SyncResult{
		EntryID: entryID,
		Added:   []string{},
		Removed: []string{},
		Failed:  []SyncFailure{},
	}

	// The working list only advances past an update the bridge accepted,
	// so a failed entity is left exactly as it was.
	working := sortedKeys(current)
	for _, id := range removes {
		next := without(working, id)
		if err := m.applyFilter(ctx, entryID, next); err != nil {
			result.Failed = append(result.Failed, SyncFailure{EntityID: id, Action: "remove", Reason: err.Error()})
			continue
		}
		working = next
		result.Removed = append(result.Removed, id)
	}
	for _, id := range adds {
		next := withEntity(working, id)
		if err := m.applyFilter(ctx, entryID, next); err != nil {
			result.Failed = append(result.Failed, SyncFailure{EntityID: id, Action: "add", Reason: err.Error()})
			continue
		}
		working = next
		result.Added = append(result.Added, id)
	}

	if err := m.store.SetLastGenerated(ctx, exposure.AssistantHomeKit, time.Now().UTC()); err != nil {
		return result, err
	}

	m.logger.Info("homekit push complete",
		"entry_id", entryID,
		"added", len(result.Added),
		"removed", len(result.Removed),
		"failed", len(result.Failed),
	)
	return result, nil
}

// Pull adopts the bridge's live accessory set into the document's
// HomeKit filter config as an include-mode entity list, so stored
// configuration reproduces live exposure exactly. Used to bootstrap
// management of a bridge configured elsewhere.
func (m *Manager) Pull(ctx context.Context, merge MergeMode) (PullResult, error) {
	switch merge {
	case MergeReplace, MergeKeep:
	default:
		return PullResult{}, fmt.Errorf("%w: %q", ErrInvalidMergeMode, merge)
	}

	doc, err := m.store.State(ctx)
	if err != nil {
		return PullResult{}, err
	}
	entryID, err := selectedBridge(doc)
	if err != nil {
		return PullResult{}, err
	}

	filter, err := m.readFilter(ctx, entryID)
	if err != nil {
		return PullResult{}, err
	}

	universe := supportedUniverse(m.directory.Universe())
	entities := sortedKeys(includedEntities(filter, universe))

	cfg := exposure.FilterConfig{
		FilterMode: exposure.FilterModeInclude,
		Domains:    []string{},
		Entities:   entities,
		Devices:    []string{},
		Overrides:  []string{},
	}
	if merge == MergeKeep {
		cfg.Overrides = liveOverrides(doc.HomeKitFilterConfig.Overrides, universe)
	}

	if err := m.store.ReplaceHomeKitConfig(ctx, cfg, time.Now().UTC()); err != nil {
		return PullResult{}, err
	}

	m.logger.Info("homekit pull complete",
		"entry_id", entryID,
		"entities", len(entities),
		"overrides", len(cfg.Overrides),
	)
	return PullResult{EntryID: entryID, Entities: entities, Overrides: cfg.Overrides}, nil
}

// selectedBridge extracts the selected bridge entry id from the
// document.
func selectedBridge(doc *exposure.Document) (string, error) {
	if doc.HomeKitEntryID == nil || *doc.HomeKitEntryID == "" {
		return "", ErrNoBridge
	}
	return *doc.HomeKitEntryID, nil
}

// readFilter reads a bridge's accessory filter, mapping hub errors onto
// this package's sentinels.
func (m *Manager) readFilter(ctx context.Context, entryID string) (homeassistant.AccessoryFilter, error) {
	filter, err := m.controller.AccessoryFilter(ctx, entryID)
	if err != nil {
		if errors.Is(err, homeassistant.ErrEntryNotFound) {
			return homeassistant.AccessoryFilter{}, fmt.Errorf("%w: %s", ErrBridgeNotFound, entryID)
		}
		return homeassistant.AccessoryFilter{}, fmt.Errorf("%w: reading accessory filter: %w", ErrBridgeRejected, err)
	}
	return filter, nil
}

// applyFilter writes an include-mode filter carrying the working entity
// list. The manager always writes include mode: it is the only shape
// that encodes the resolved set exactly.
func (m *Manager) applyFilter(ctx context.Context, entryID string, entities []string) error {
	return m.controller.SetAccessoryFilter(ctx, entryID, homeassistant.AccessoryFilter{
		Mode:     homeassistant.FilterInclude,
		Domains:  SupportedDomains,
		Entities: entities,
	})
}

// resolveDesired evaluates the HomeKit-effective filter config over the
// universe and returns the sorted exposed entity ids.
func resolveDesired(doc *exposure.Document, universe []exposure.Entity) []string {
	resolver := exposure.NewResolver(doc.EffectiveFilterConfig(exposure.AssistantHomeKit))
	out := make([]string, 0, len(universe))
	for _, e := range universe {
		if resolver.Exposed(e) {
			out = append(out, e.EntityID)
		}
	}
	sort.Strings(out)
	return out
}

// supportedUniverse drops entities whose domain the bridge cannot
// represent.
func supportedUniverse(entities []exposure.Entity) []exposure.Entity {
	out := make([]exposure.Entity, 0, len(entities))
	for _, e := range entities {
		if DomainSupported(e.Domain) {
			out = append(out, e)
		}
	}
	return out
}

// includedEntities derives the set of entities a bridge currently
// exposes from its accessory filter. Include mode is the entity list
// itself; exclude mode is everything in the covered domains minus the
// listed entities, an empty domain list covering all supported domains.
func includedEntities(filter homeassistant.AccessoryFilter, universe []exposure.Entity) map[string]struct{} {
	included := make(map[string]struct{})
	if filter.Mode != homeassistant.FilterExclude {
		for _, id := range filter.Entities {
			included[id] = struct{}{}
		}
		return included
	}

	domains := make(map[string]struct{}, len(filter.Domains))
	for _, d := range filter.Domains {
		domains[d] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(filter.Entities))
	for _, id := range filter.Entities {
		excluded[id] = struct{}{}
	}
	for _, e := range universe {
		if len(domains) > 0 {
			if _, ok := domains[e.Domain]; !ok {
				continue
			}
		}
		if _, ok := excluded[e.EntityID]; ok {
			continue
		}
		included[e.EntityID] = struct{}{}
	}
	return included
}

// diffSets splits desired against current into sorted add and remove
// lists.
func diffSets(current map[string]struct{}, desired []string) (adds, removes []string) {
	desiredSet := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
		if _, ok := current[id]; !ok {
			adds = append(adds, id)
		}
	}
	for id := range current {
		if _, ok := desiredSet[id]; !ok {
			removes = append(removes, id)
		}
	}
	sort.Strings(adds)
	sort.Strings(removes)
	return adds, removes
}

// liveOverrides filters an override list down to entities still present
// in the universe.
func liveOverrides(overrides []string, universe []exposure.Entity) []string {
	known := make(map[string]struct{}, len(universe))
	for _, e := range universe {
		known[e.EntityID] = struct{}{}
	}
	out := make([]string, 0, len(overrides))
	for _, id := range overrides {
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func withEntity(list []string, id string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, id)
	sort.Strings(out)
	return out
}
