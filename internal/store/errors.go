package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, store.ErrStorage) {
//	    // retryable persistence fault
//	}
var (
	// ErrStorage is returned when persistence I/O fails. The in-memory
	// document is left unchanged, so the operation can be retried.
	ErrStorage = errors.New("store: storage failure")

	// ErrNotFound is returned by repositories when no document row exists.
	ErrNotFound = errors.New("store: document not found")

	// ErrNotLoaded is returned when an operation runs before Load().
	ErrNotLoaded = errors.New("store: document not loaded")

	// ErrUnknownBridge is returned when a bridge id does not reference
	// an existing bridge.
	ErrUnknownBridge = errors.New("store: unknown bridge")

	// ErrUnsupportedSchema is returned when a persisted document carries
	// a schema version this build cannot read.
	ErrUnsupportedSchema = errors.New("store: unsupported schema version")
)
