package exposure

// The FilterConfig list fields carry set semantics. These mutators keep
// membership unique while preserving insertion order, so repeated bulk
// operations stay idempotent and serialised output stays stable.

// AddDomains inserts domains absent from the domain list.
func (c *FilterConfig) AddDomains(domains ...string) {
	c.Domains = union(c.Domains, domains)
}

// AddEntities inserts ids absent from the entity list.
func (c *FilterConfig) AddEntities(ids ...string) {
	c.Entities = union(c.Entities, ids)
}

// RemoveEntities removes ids from the entity list. Missing ids are a
// no-op.
func (c *FilterConfig) RemoveEntities(ids ...string) {
	c.Entities = difference(c.Entities, ids)
}

// AddDevices inserts ids absent from the device list.
func (c *FilterConfig) AddDevices(ids ...string) {
	c.Devices = union(c.Devices, ids)
}

// AddOverrides inserts ids absent from the override list.
func (c *FilterConfig) AddOverrides(ids ...string) {
	c.Overrides = union(c.Overrides, ids)
}

// RemoveOverrides removes ids from the override list.
func (c *FilterConfig) RemoveOverrides(ids ...string) {
	c.Overrides = difference(c.Overrides, ids)
}

// HasOverride reports whether the id is on the override list.
func (c *FilterConfig) HasOverride(id string) bool {
	for _, existing := range c.Overrides {
		if existing == id {
			return true
		}
	}
	return false
}

// ToggleOverride adds the id to the override list if absent or removes
// it if present. Returns true when the id was added. Two consecutive
// toggles on the same id restore the original configuration.
func (c *FilterConfig) ToggleOverride(id string) bool {
	if c.HasOverride(id) {
		c.RemoveOverrides(id)
		return false
	}
	c.AddOverrides(id)
	return true
}

// union appends items not already present, preserving order.
func union(list []string, items []string) []string {
	seen := toSet(list)
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		list = append(list, item)
		seen[item] = struct{}{}
	}
	return list
}

// difference removes items from the list, preserving order of the rest.
func difference(list []string, items []string) []string {
	if len(items) == 0 {
		return list
	}
	drop := toSet(items)
	out := list[:0]
	for _, existing := range list {
		if _, ok := drop[existing]; !ok {
			out = append(out, existing)
		}
	}
	return out
}
