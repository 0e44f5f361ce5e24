package exposure

import (
	"reflect"
	"testing"
)

func TestAddEntitiesSetSemantics(t *testing.T) {
	c := FilterConfig{Entities: []string{"light.hall"}}

	// Adding a mix of present and absent ids inserts each absent id
	// exactly once, independent of prior membership.
	c.AddEntities("light.hall", "light.kitchen", "light.kitchen")

	want := []string{"light.hall", "light.kitchen"}
	if !reflect.DeepEqual(c.Entities, want) {
		t.Errorf("Entities = %v, want %v", c.Entities, want)
	}

	// Repeating the call changes nothing.
	c.AddEntities("light.hall", "light.kitchen")
	if !reflect.DeepEqual(c.Entities, want) {
		t.Errorf("Entities after repeat = %v, want %v", c.Entities, want)
	}
}

func TestRemoveEntities(t *testing.T) {
	c := FilterConfig{Entities: []string{"light.hall", "light.kitchen", "switch.fan"}}

	c.RemoveEntities("light.kitchen", "sensor.absent")

	want := []string{"light.hall", "switch.fan"}
	if !reflect.DeepEqual(c.Entities, want) {
		t.Errorf("Entities = %v, want %v", c.Entities, want)
	}
}

func TestAddDomainsAndDevices(t *testing.T) {
	c := FilterConfig{}

	c.AddDomains("light", "switch", "light")
	c.AddDevices("dev-1", "dev-1", "dev-2")

	if want := []string{"light", "switch"}; !reflect.DeepEqual(c.Domains, want) {
		t.Errorf("Domains = %v, want %v", c.Domains, want)
	}
	if want := []string{"dev-1", "dev-2"}; !reflect.DeepEqual(c.Devices, want) {
		t.Errorf("Devices = %v, want %v", c.Devices, want)
	}
}

func TestToggleOverrideInvolution(t *testing.T) {
	c := FilterConfig{FilterMode: FilterModeExclude}
	entity := Entity{EntityID: "light.hall", Domain: "light"}
	before := Exposed(entity, c)

	added := c.ToggleOverride("light.hall")
	if !added {
		t.Error("first ToggleOverride() = false, want true (added)")
	}
	if !c.HasOverride("light.hall") {
		t.Error("override missing after first toggle")
	}
	if got := Exposed(entity, c); got == before {
		t.Error("exposure unchanged after adding override")
	}

	added = c.ToggleOverride("light.hall")
	if added {
		t.Error("second ToggleOverride() = true, want false (removed)")
	}
	if c.HasOverride("light.hall") {
		t.Error("override still present after second toggle")
	}
	if got := Exposed(entity, c); got != before {
		t.Errorf("exposure after double toggle = %v, want original %v", got, before)
	}
	if len(c.Overrides) != 0 {
		t.Errorf("Overrides = %v, want empty after double toggle", c.Overrides)
	}
}
