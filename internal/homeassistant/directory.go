package homeassistant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/voicebridge/internal/exposure"
)

// StatesSource supplies live entity states. Satisfied by *Client.
type StatesSource interface {
	GetStates(ctx context.Context) ([]State, error)
}

// RegistrySource supplies registry listings. Satisfied by *WSClient.
type RegistrySource interface {
	EntityRegistry(ctx context.Context) ([]EntityEntry, error)
	DeviceRegistry(ctx context.Context) ([]DeviceEntry, error)
	AreaRegistry(ctx context.Context) ([]Area, error)
}

// Record is the directory's merged view of one entity: live state
// joined with its registry entry.
type Record struct {
	EntityID    string
	Domain      string
	DeviceID    string
	AreaID      string
	DisplayName string
}

// Directory caches a merged view of the entity, device, and area
// registries plus live states. It is refreshed on demand; there is no
// background polling.
//
// Display names resolve in precedence order: the state's friendly_name
// attribute, the registry name, the registry original name, then the
// entity id itself.
//
// Thread Safety: all methods are safe for concurrent use.
type Directory struct {
	states   StatesSource
	registry RegistrySource
	logger   Logger

	mu          sync.RWMutex
	entities    map[string]Record
	order       []string
	devices     map[string]DeviceEntry
	areas       map[string]Area
	lastRefresh time.Time
}

// DirectoryOptions holds dependencies for creating a Directory.
type DirectoryOptions struct {
	// States supplies live entity states. Required.
	States StatesSource

	// Registry supplies registry listings. Required.
	Registry RegistrySource

	// Logger is optional; defaults to no-op.
	Logger Logger
}

// NewDirectory creates a Directory. Call Refresh before first use.
func NewDirectory(opts DirectoryOptions) (*Directory, error) {
	if opts.States == nil {
		return nil, fmt.Errorf("homeassistant: states source is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("homeassistant: registry source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Directory{
		states:   opts.States,
		registry: opts.Registry,
		logger:   logger,
		entities: make(map[string]Record),
		devices:  make(map[string]DeviceEntry),
		areas:    make(map[string]Area),
	}, nil
}

// Refresh rebuilds the cache from Home Assistant. The swap is
// all-or-nothing: any fetch failure leaves the previous cache in place.
func (d *Directory) Refresh(ctx context.Context) error {
	states, err := d.states.GetStates(ctx)
	if err != nil {
		return fmt.Errorf("fetching states: %w", err)
	}
	entries, err := d.registry.EntityRegistry(ctx)
	if err != nil {
		return fmt.Errorf("fetching entity registry: %w", err)
	}
	devices, err := d.registry.DeviceRegistry(ctx)
	if err != nil {
		return fmt.Errorf("fetching device registry: %w", err)
	}
	areas, err := d.registry.AreaRegistry(ctx)
	if err != nil {
		return fmt.Errorf("fetching area registry: %w", err)
	}

	entities, order := buildRecords(states, entries)

	deviceMap := make(map[string]DeviceEntry, len(devices))
	for _, dev := range devices {
		deviceMap[dev.ID] = dev
	}
	areaMap := make(map[string]Area, len(areas))
	for _, a := range areas {
		areaMap[a.AreaID] = a
	}

	d.mu.Lock()
	d.entities = entities
	d.order = order
	d.devices = deviceMap
	d.areas = areaMap
	d.lastRefresh = time.Now().UTC()
	d.mu.Unlock()

	d.logger.Info("entity directory refreshed",
		"entities", len(order),
		"devices", len(deviceMap),
		"areas", len(areaMap),
	)
	return nil
}

// buildRecords merges states with registry entries. Entities disabled
// in the registry are dropped; live entities without a registry entry
// are kept.
func buildRecords(states []State, entries []EntityEntry) (map[string]Record, []string) {
	registry := make(map[string]EntityEntry, len(entries))
	for _, e := range entries {
		registry[e.EntityID] = e
	}

	records := make(map[string]Record, len(states))
	for _, s := range states {
		domain := entityDomain(s.EntityID)
		if domain == "" {
			continue
		}

		entry, inRegistry := registry[s.EntityID]
		if inRegistry && entry.IsDisabled() {
			continue
		}

		name := s.FriendlyName()
		if name == "" {
			name = entry.Name
		}
		if name == "" {
			name = entry.OriginalName
		}
		if name == "" {
			name = s.EntityID
		}

		records[s.EntityID] = Record{
			EntityID:    s.EntityID,
			Domain:      domain,
			DeviceID:    entry.DeviceID,
			AreaID:      entry.AreaID,
			DisplayName: name,
		}
	}

	order := make([]string, 0, len(records))
	for id := range records {
		order = append(order, id)
	}
	sort.Strings(order)

	return records, order
}

// entityDomain extracts the domain part of an entity id, or "" when the
// id has no domain separator.
func entityDomain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return ""
}

// Entities returns all cached records in entity-id order.
func (d *Directory) Entities() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Record, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.entities[id])
	}
	return out
}

// Universe returns the cached entities in the shape exposure resolution
// consumes, in entity-id order.
func (d *Directory) Universe() []exposure.Entity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]exposure.Entity, 0, len(d.order))
	for _, id := range d.order {
		rec := d.entities[id]
		out = append(out, exposure.Entity{
			EntityID: rec.EntityID,
			Domain:   rec.Domain,
			DeviceID: rec.DeviceID,
		})
	}
	return out
}

// DisplayName returns an entity's resolved display name, or "" when the
// entity is unknown.
func (d *Directory) DisplayName(entityID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entities[entityID].DisplayName
}

// DeviceID returns the id of the device backing an entity, or "" when
// the entity is unknown or not device-backed.
func (d *Directory) DeviceID(entityID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entities[entityID].DeviceID
}

// AreaName returns the name of an entity's area, falling back to the
// backing device's area, or "" when neither is assigned.
func (d *Directory) AreaName(entityID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.entities[entityID]
	if !ok {
		return ""
	}

	areaID := rec.AreaID
	if areaID == "" && rec.DeviceID != "" {
		areaID = d.devices[rec.DeviceID].AreaID
	}
	if areaID == "" {
		return ""
	}
	return d.areas[areaID].Name
}

// Devices returns the cached device registry entries in id order.
func (d *Directory) Devices() []DeviceEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]DeviceEntry, 0, len(d.devices))
	for _, dev := range d.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Areas returns the cached area registry entries in id order.
func (d *Directory) Areas() []Area {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Area, 0, len(d.areas))
	for _, area := range d.areas {
		out = append(out, area)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaID < out[j].AreaID })
	return out
}

// Domains returns the sorted distinct domains present in the cache.
func (d *Directory) Domains() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, id := range d.order {
		domain := d.entities[id].Domain
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of cached entities.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// LastRefresh returns when the cache was last rebuilt, zero if never.
func (d *Directory) LastRefresh() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastRefresh
}
