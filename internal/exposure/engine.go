package exposure

// Entity is the minimal read-only descriptor the resolution engine
// operates on. Richer metadata (names, areas, platform) lives in the
// directory layer; the engine only ever matches on these three fields.
type Entity struct {
	EntityID string
	Domain   string
	DeviceID string
}

// Resolver answers exposure decisions for one filter configuration.
// It precomputes set indexes so resolving an entire registry is O(1)
// per entity. A Resolver is immutable once built and safe for
// concurrent use.
type Resolver struct {
	mode      FilterMode
	domains   map[string]struct{}
	entities  map[string]struct{}
	devices   map[string]struct{}
	overrides map[string]struct{}
}

// NewResolver builds a Resolver from a filter configuration.
func NewResolver(c FilterConfig) *Resolver {
	return &Resolver{
		mode:      c.FilterMode,
		domains:   toSet(c.Domains),
		entities:  toSet(c.Entities),
		devices:   toSet(c.Devices),
		overrides: toSet(c.Overrides),
	}
}

// Exposed decides whether the entity is visible to the assistant this
// configuration belongs to.
//
// The decision is two-stage. Stage one matches the entity against the
// domain, entity and device lists (criteria are OR'd, never AND'd) and
// applies the filter-mode polarity: include mode exposes matches,
// exclude mode exposes non-matches. Stage two applies the override
// exception: an entity on the override list has its stage-one decision
// unconditionally flipped, regardless of which criterion produced it.
//
// Entities absent from the platform's active registry are excluded from
// the candidate set upstream, not here.
func (r *Resolver) Exposed(e Entity) bool {
	_, matchDomain := r.domains[e.Domain]
	_, matchEntity := r.entities[e.EntityID]
	matchDevice := false
	if e.DeviceID != "" {
		_, matchDevice = r.devices[e.DeviceID]
	}
	matched := matchDomain || matchEntity || matchDevice

	base := matched
	if r.mode != FilterModeInclude {
		base = !matched
	}

	if _, override := r.overrides[e.EntityID]; override {
		return !base
	}
	return base
}

// ExposedSet resolves a batch of entities and returns the set of
// exposed entity ids.
func (r *Resolver) ExposedSet(entities []Entity) map[string]struct{} {
	out := make(map[string]struct{})
	for _, e := range entities {
		if r.Exposed(e) {
			out[e.EntityID] = struct{}{}
		}
	}
	return out
}

// Exposed is the single-entity convenience form of Resolver.Exposed.
// Building a Resolver is preferred when resolving many entities against
// the same configuration.
func Exposed(e Entity, c FilterConfig) bool {
	return NewResolver(c).Exposed(e)
}

// toSet builds a membership set from a list, dropping duplicates.
func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
