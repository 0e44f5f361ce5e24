// Package exposure defines the core domain model for VoiceBridge: the
// configuration document shared by all voice assistants, the layered
// filter rules that decide per-entity exposure, and the validation layer
// that bounds-checks every mutation input.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────────┐
//	│                              exposure                              │
//	│                                                                    │
//	│  ┌────────────────┐   ┌────────────────┐   ┌────────────────────┐  │
//	│  │    Document    │   │    Resolver    │   │     Validation     │  │
//	│  │ (document.go)  │   │  (engine.go)   │   │  (validation.go)   │  │
//	│  │                │   │                │   │                    │  │
//	│  │ • mode +       │──▶│ • two-stage    │   │ • size limits      │  │
//	│  │   filter cfgs  │   │   resolution   │   │ • shape checks     │  │
//	│  │ • aliases      │   │ • set indexes  │   │ • enum sets        │  │
//	│  │ • settings     │   │ • pure, no I/O │   │                    │  │
//	│  └────────────────┘   └────────────────┘   └────────────────────┘  │
//	└────────────────────────────────────────────────────────────────────┘
//
// # Resolution
//
// Exposure is decided in two independent stages so each is unit-testable
// on its own:
//
//  1. Base match: an entity matches when its domain, entity id, or
//     device id appears in the corresponding filter list (OR'd). Include
//     mode exposes matches; exclude mode exposes non-matches.
//  2. Override flip: an entity on the override list has its base
//     decision unconditionally inverted.
//
// In linked mode all assistants resolve against the shared FilterConfig;
// in separate mode each assistant resolves against its own.
//
// # Usage
//
//	doc := exposure.DefaultDocument()
//	cfg := doc.EffectiveFilterConfig(exposure.AssistantGoogle)
//	resolver := exposure.NewResolver(cfg)
//	if resolver.Exposed(exposure.Entity{EntityID: "light.kitchen", Domain: "light"}) {
//	    // entity is visible to Google Assistant
//	}
//
// The package is pure: no I/O, no clocks, no globals. Persistence lives
// in the store package; entity metadata comes from the directory layer.
package exposure
