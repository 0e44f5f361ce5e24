package generator

import "errors"

var (
	// ErrNoArtifact is returned when an assistant has no generated
	// document. HomeKit exposure lives on the bridge, not in a file.
	ErrNoArtifact = errors.New("generator: no artifact document for assistant")

	// ErrIncomplete is returned by Write when the assistant's settings
	// are missing required fields or the assistant is disabled.
	ErrIncomplete = errors.New("generator: assistant settings incomplete")

	// ErrPathEscape is returned when a resolved artifact path falls
	// outside the configured output directory.
	ErrPathEscape = errors.New("generator: artifact path escapes the output directory")

	// ErrWriteFailed wraps filesystem failures while persisting an
	// artifact.
	ErrWriteFailed = errors.New("generator: artifact write failed")
)
