package exposure

import "errors"

// Validation errors for the exposure package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, exposure.ErrInvalidEntityID) {
//	    // reject the request at the boundary
//	}
var (
	// ErrInvalidMode is returned when a mode value is not recognised.
	ErrInvalidMode = errors.New("exposure: invalid mode")

	// ErrInvalidFilterMode is returned when a filter mode is not recognised.
	ErrInvalidFilterMode = errors.New("exposure: invalid filter mode")

	// ErrInvalidAssistant is returned when an assistant value is not recognised.
	ErrInvalidAssistant = errors.New("exposure: invalid assistant")

	// ErrInvalidEntityID is returned when an entity id fails validation.
	ErrInvalidEntityID = errors.New("exposure: invalid entity id")

	// ErrInvalidDomain is returned when a domain name fails validation.
	ErrInvalidDomain = errors.New("exposure: invalid domain")

	// ErrInvalidDeviceID is returned when a device id fails validation.
	ErrInvalidDeviceID = errors.New("exposure: invalid device id")

	// ErrInvalidAlias is returned when an alias fails validation.
	ErrInvalidAlias = errors.New("exposure: invalid alias")

	// ErrInvalidSettings is returned when assistant settings fail validation.
	ErrInvalidSettings = errors.New("exposure: invalid settings")

	// ErrInvalidBulkAction is returned when a bulk action is not recognised.
	ErrInvalidBulkAction = errors.New("exposure: invalid bulk action")

	// ErrTooManyEntities is returned when a bulk operation exceeds the
	// per-call entity limit.
	ErrTooManyEntities = errors.New("exposure: too many entities")

	// ErrAliasesUnsupported is returned for alias operations targeting
	// HomeKit, which has no alias map.
	ErrAliasesUnsupported = errors.New("exposure: aliases not supported for assistant")
)
