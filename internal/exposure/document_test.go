package exposure

import (
	"reflect"
	"testing"
	"time"
)

func TestDefaultDocument(t *testing.T) {
	doc := DefaultDocument()

	if doc.Mode != ModeLinked {
		t.Errorf("Mode = %q, want %q", doc.Mode, ModeLinked)
	}
	if doc.FilterConfig.FilterMode != FilterModeExclude {
		t.Errorf("FilterConfig.FilterMode = %q, want %q", doc.FilterConfig.FilterMode, FilterModeExclude)
	}
	if doc.HomeKitEntryID != nil {
		t.Error("HomeKitEntryID should default to nil")
	}
	if !doc.GoogleSettings.ReportState {
		t.Error("GoogleSettings.ReportState should default to true")
	}
	if doc.GoogleSettings.Enabled || doc.AlexaSettings.Enabled {
		t.Error("assistants should default to disabled")
	}
	if doc.LastGenerated.Google != nil || doc.LastGenerated.Alexa != nil || doc.LastGenerated.HomeKit != nil {
		t.Error("LastGenerated timestamps should default to nil")
	}
}

func TestDocumentDeepCopyIsolation(t *testing.T) {
	entryID := "bridge-entry-1"
	now := time.Now()
	doc := DefaultDocument()
	doc.FilterConfig.Domains = []string{"light"}
	doc.Aliases["light.hall"] = "Hall Light"
	doc.HomeKitEntryID = &entryID
	doc.LastGenerated.Google = &now

	cpy := doc.DeepCopy()

	cpy.FilterConfig.Domains[0] = "switch"
	cpy.Aliases["light.hall"] = "Changed"
	*cpy.HomeKitEntryID = "other"
	*cpy.LastGenerated.Google = now.Add(time.Hour)

	if doc.FilterConfig.Domains[0] != "light" {
		t.Error("DeepCopy() shares Domains slice with original")
	}
	if doc.Aliases["light.hall"] != "Hall Light" {
		t.Error("DeepCopy() shares Aliases map with original")
	}
	if *doc.HomeKitEntryID != "bridge-entry-1" {
		t.Error("DeepCopy() shares HomeKitEntryID pointer with original")
	}
	if !doc.LastGenerated.Google.Equal(now) {
		t.Error("DeepCopy() shares LastGenerated pointer with original")
	}
}

func TestFilterConfigApplyMerge(t *testing.T) {
	base := FilterConfig{
		FilterMode: FilterModeExclude,
		Domains:    []string{"light"},
		Entities:   []string{"switch.fan"},
		Devices:    []string{"dev-1"},
		Overrides:  []string{"light.kitchen"},
	}

	t.Run("present fields replace wholesale", func(t *testing.T) {
		c := base.DeepCopy()
		newDomains := []string{"climate", "cover"}
		c.Apply(FilterConfigPatch{Domains: &newDomains})

		if !reflect.DeepEqual(c.Domains, newDomains) {
			t.Errorf("Domains = %v, want %v", c.Domains, newDomains)
		}
	})

	t.Run("absent fields retain current values", func(t *testing.T) {
		c := base.DeepCopy()
		newDomains := []string{"climate"}
		c.Apply(FilterConfigPatch{Domains: &newDomains})

		if c.FilterMode != base.FilterMode {
			t.Errorf("FilterMode = %q, want %q", c.FilterMode, base.FilterMode)
		}
		if !reflect.DeepEqual(c.Entities, base.Entities) {
			t.Errorf("Entities = %v, want %v", c.Entities, base.Entities)
		}
		if !reflect.DeepEqual(c.Devices, base.Devices) {
			t.Errorf("Devices = %v, want %v", c.Devices, base.Devices)
		}
		if !reflect.DeepEqual(c.Overrides, base.Overrides) {
			t.Errorf("Overrides = %v, want %v", c.Overrides, base.Overrides)
		}
	})

	t.Run("empty patch changes nothing", func(t *testing.T) {
		c := base.DeepCopy()
		c.Apply(FilterConfigPatch{})

		if !reflect.DeepEqual(c, base) {
			t.Errorf("config after empty patch = %+v, want %+v", c, base)
		}
	})

	t.Run("explicit empty list clears the field", func(t *testing.T) {
		c := base.DeepCopy()
		empty := []string{}
		c.Apply(FilterConfigPatch{Entities: &empty})

		if len(c.Entities) != 0 {
			t.Errorf("Entities = %v, want empty", c.Entities)
		}
	})
}

func TestTargetFilterConfig(t *testing.T) {
	doc := DefaultDocument()

	tests := []struct {
		name      string
		assistant Assistant
		want      *FilterConfig
	}{
		{"shared when assistant empty", "", &doc.FilterConfig},
		{"google targets google config", AssistantGoogle, &doc.GoogleFilterConfig},
		{"alexa targets alexa config", AssistantAlexa, &doc.AlexaFilterConfig},
		{"homekit targets homekit config", AssistantHomeKit, &doc.HomeKitFilterConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.TargetFilterConfig(tt.assistant); got != tt.want {
				t.Errorf("TargetFilterConfig(%q) returned wrong config pointer", tt.assistant)
			}
		})
	}
}

func TestTargetFilterConfigIgnoresMode(t *testing.T) {
	doc := DefaultDocument()
	doc.Mode = ModeLinked

	// Mutations address the named config even in linked mode; mode only
	// affects resolution.
	doc.TargetFilterConfig(AssistantGoogle).AddEntities("light.hall")

	if len(doc.FilterConfig.Entities) != 0 {
		t.Error("mutation targeting google leaked into shared config")
	}
	if len(doc.GoogleFilterConfig.Entities) != 1 {
		t.Error("mutation did not reach google config")
	}
}

func TestEffectiveFilterConfig(t *testing.T) {
	doc := DefaultDocument()
	doc.FilterConfig.Domains = []string{"shared"}
	doc.GoogleFilterConfig.Domains = []string{"google"}

	doc.Mode = ModeLinked
	if got := doc.EffectiveFilterConfig(AssistantGoogle); got.Domains[0] != "shared" {
		t.Errorf("linked mode effective config = %v, want shared", got.Domains)
	}

	doc.Mode = ModeSeparate
	if got := doc.EffectiveFilterConfig(AssistantGoogle); got.Domains[0] != "google" {
		t.Errorf("separate mode effective config = %v, want google's own", got.Domains)
	}
}

func TestEffectiveAliases(t *testing.T) {
	doc := DefaultDocument()
	doc.Aliases["light.hall"] = "Shared Name"
	doc.GoogleAliases["light.hall"] = "Google Name"

	doc.Mode = ModeLinked
	if got := doc.EffectiveAliases(AssistantGoogle); got["light.hall"] != "Shared Name" {
		t.Errorf("linked mode aliases = %v, want shared map", got)
	}

	doc.Mode = ModeSeparate
	if got := doc.EffectiveAliases(AssistantGoogle); got["light.hall"] != "Google Name" {
		t.Errorf("separate mode aliases = %v, want google map", got)
	}

	if got := doc.EffectiveAliases(AssistantHomeKit); got != nil {
		t.Errorf("homekit aliases = %v, want nil", got)
	}
}

func TestTargetAliasesHomeKitUnsupported(t *testing.T) {
	doc := DefaultDocument()

	if _, ok := doc.TargetAliases(AssistantHomeKit); ok {
		t.Error("TargetAliases(homekit) should report unsupported")
	}
	if aliases, ok := doc.TargetAliases(AssistantGoogle); !ok || aliases == nil {
		t.Error("TargetAliases(google) should return a usable map")
	}
}

func TestCompleteness(t *testing.T) {
	t.Run("google requires enabled and identifying fields", func(t *testing.T) {
		doc := DefaultDocument()

		if doc.IsGoogleComplete() {
			t.Error("default google settings should be incomplete")
		}

		doc.GoogleSettings.Enabled = true
		doc.GoogleSettings.ProjectID = "my-project"
		if doc.IsGoogleComplete() {
			t.Error("google incomplete while service_account_path is empty")
		}

		doc.GoogleSettings.ServiceAccountPath = "/config/service_account.json"
		if !doc.IsGoogleComplete() {
			t.Error("google should be complete with all required fields populated")
		}

		doc.GoogleSettings.Enabled = false
		if doc.IsGoogleComplete() {
			t.Error("google should be incomplete when disabled")
		}
	})

	t.Run("alexa requires only enabled", func(t *testing.T) {
		doc := DefaultDocument()

		if doc.IsAlexaComplete() {
			t.Error("default alexa settings should be incomplete")
		}
		doc.AlexaSettings.Enabled = true
		if !doc.IsAlexaComplete() {
			t.Error("alexa should be complete once enabled")
		}
	})

	t.Run("homekit requires a selected bridge", func(t *testing.T) {
		doc := DefaultDocument()

		if doc.IsHomeKitComplete() {
			t.Error("homekit should be incomplete with no bridge selected")
		}
		empty := ""
		doc.HomeKitEntryID = &empty
		if doc.IsHomeKitComplete() {
			t.Error("homekit should be incomplete with empty entry id")
		}
		entryID := "bridge-entry-1"
		doc.HomeKitEntryID = &entryID
		if !doc.IsHomeKitComplete() {
			t.Error("homekit should be complete with a bridge selected")
		}
	})

	t.Run("IsComplete dispatches per assistant", func(t *testing.T) {
		doc := DefaultDocument()
		doc.AlexaSettings.Enabled = true

		if doc.IsComplete(AssistantGoogle) {
			t.Error("IsComplete(google) = true, want false")
		}
		if !doc.IsComplete(AssistantAlexa) {
			t.Error("IsComplete(alexa) = false, want true")
		}
		if doc.IsComplete(AssistantHomeKit) {
			t.Error("IsComplete(homekit) = true, want false")
		}
		if doc.IsComplete("unknown") {
			t.Error("IsComplete(unknown) = true, want false")
		}
	})
}
