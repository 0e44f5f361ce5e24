// Package homeassistant provides the Home Assistant connectivity layer
// for VoiceBridge.
//
// # Architecture
//
//	┌──────────────┐   REST: states, services,    ┌────────────────┐
//	│    Client    │   config check, entries,     │                │
//	│  (net/http)  │──── options flows ──────────>│                │
//	└──────────────┘                              │ Home Assistant │
//	┌──────────────┐   WebSocket: entity/device/  │                │
//	│   WSClient   │──── area registries ────────>│                │
//	│  (gorilla)   │                              └────────────────┘
//	└──────┬───────┘
//	       │ feeds
//	       ▼
//	┌──────────────┐
//	│  Directory   │  cached entity view: display names, device ids,
//	│ (on-demand)  │  areas, exposure universe
//	└──────────────┘
//
// The REST client covers everything with a REST surface. Registry
// listings only exist as WebSocket commands, so WSClient carries those;
// its connection is established lazily and redialled on next use after
// a drop, with no background reconnect loop.
//
// # HomeKit bridges
//
// A HomeKit bridge's accessory filter lives in its config entry
// options, which are only reachable remotely through the entry's
// options flow. AccessoryFilter reads the current filter out of the
// flow's form defaults and abandons the flow uncommitted;
// SetAccessoryFilter drives the flow to completion with new values,
// resubmitting untouched fields verbatim.
//
// # Directory
//
// Directory merges live states with the registries into one cached
// view. Refresh is explicit and all-or-nothing; a failed refresh keeps
// the previous cache. Entities disabled in the registry are dropped,
// live entities without a registry entry are kept.
//
// # Thread Safety
//
// Client, WSClient, and Directory are all safe for concurrent use.
package homeassistant
