// Package logging builds the slog-based structured logger shared by
// every VoiceBridge component. Records are JSON by default so the
// supervisor's log collector can parse them, or human-readable text for
// development, and always carry service and version fields.
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "json"   # json, text
//	  output: "stdout" # stdout, stderr
//
// Components receive a *Logger and scope it with With:
//
//	log := logger.With("component", "generator")
//	log.Info("artifacts written", "count", 2)
//
// The hub access token must never appear in a record, at any level.
// Log its length or a fixed-prefix fingerprint if a trace needs it.
package logging
