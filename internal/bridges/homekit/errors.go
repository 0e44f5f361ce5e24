package homekit

import "errors"

var (
	// ErrBridgeNotFound is returned when the referenced config entry
	// does not exist on the hub.
	ErrBridgeNotFound = errors.New("homekit: bridge not found")

	// ErrNoBridge is returned by sync operations when no bridge has
	// been selected in the configuration document.
	ErrNoBridge = errors.New("homekit: no bridge selected")

	// ErrBridgeRejected wraps hub-side failures while reading or
	// writing a bridge's accessory filter.
	ErrBridgeRejected = errors.New("homekit: bridge rejected request")

	// ErrInvalidMergeMode is returned for unrecognised pull merge modes.
	ErrInvalidMergeMode = errors.New("homekit: invalid merge mode")
)
