// Package api implements the HTTP REST API for voicebridge.
//
// This package provides:
//   - REST endpoints for the exposure configuration command surface
//   - Artifact preview/write and HomeKit bridge push/pull operations
//   - Hub service passthroughs (config check, restart)
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Optional TLS termination for installs without a reverse proxy
//
// # Architecture
//
// The API server sits between the admin UI and the configuration store,
// entity directory, artifact generator, and bridge manager. Mutations flow
// through the store (which serialises and persists them), then fan out as
// audit entries, MQTT announcements, and InfluxDB metrics when those
// components are configured.
//
// # Authorization
//
// There is none here: the service binds to a trusted network and expects
// authorization upstream (reverse proxy or the hub's own session in front).
//
// # Graceful Degradation
//
// The server operates without audit, MQTT, or InfluxDB. Mutations still
// work, they just go unrecorded and unannounced. Hub outages degrade the
// read surface to cached directory data.
package api
