package homeassistant

import "errors"

// Client errors for the homeassistant package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, homeassistant.ErrAuthFailed) {
//	    // token rejected, re-check VOICEBRIDGE_HA_TOKEN
//	}
var (
	// ErrAuthFailed is returned when the access token is rejected.
	ErrAuthFailed = errors.New("homeassistant: authentication failed")

	// ErrRequestFailed is returned when the API answers with a
	// non-success status or a command-level error.
	ErrRequestFailed = errors.New("homeassistant: request failed")

	// ErrEntryNotFound is returned when a config entry id does not
	// reference a loaded config entry.
	ErrEntryNotFound = errors.New("homeassistant: config entry not found")

	// ErrFlowStuck is returned when an options flow does not reach
	// completion within the expected number of steps.
	ErrFlowStuck = errors.New("homeassistant: options flow did not complete")
)
