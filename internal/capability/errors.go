package capability

import "errors"

// Domain errors for the capability package.
var (
	// ErrUnknownCapability is returned when a capability id is not recognised.
	ErrUnknownCapability = errors.New("capability: unknown capability")

	// ErrDenied is returned when a capability is on the denylist for a class.
	ErrDenied = errors.New("capability: denied for device class")

	// ErrPlatformPanic wraps a panic raised by a platform mutation call.
	ErrPlatformPanic = errors.New("capability: platform call panicked")
)
