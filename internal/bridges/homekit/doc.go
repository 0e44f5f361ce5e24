// Package homekit reconciles a HomeKit bridge's accessory set with the
// resolved exposure configuration.
//
// The bridge itself belongs to the hub: it is a HomeKit config entry
// whose accessory filter decides which entities appear in the Home app.
// This package keeps that filter and the configuration document
// consistent, in both directions.
//
// # Architecture
//
//	┌──────────────┐           ┌──────────────┐           ┌──────────────┐
//	│ Config Store │── Push ──►│   Manager    │── filter ─►│ HomeKit     │
//	│  (document)  │◄── Pull ──│  (this pkg)  │◄─ filter ──│ bridge entry│
//	└──────────────┘           └──────────────┘           └──────────────┘
//
// # Push
//
// Push resolves the HomeKit-effective filter config over the universe of
// supported-domain entities, diffs the result against the bridge's
// current inclusion set, and applies the minimal add/remove operations.
// Each operation is one filter update carrying the whole working list,
// so a rejected entity is skipped and reported without aborting the
// rest. Nothing is rolled back.
//
// # Pull
//
// Pull reads the bridge's live accessory set and writes it into the
// document's HomeKit filter config as an include-mode entity list. The
// merge mode decides whether existing overrides survive: MergeReplace
// drops them, MergeKeep retains those whose entities still exist.
//
// # Supported Domains
//
// HomeKit represents only some entity domains as accessories. Entities
// outside SupportedDomains are dropped from the reconciliation universe
// rather than reported as failures.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple
// goroutines.
package homekit
