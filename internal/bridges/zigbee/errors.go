package zigbee

import "errors"

// Domain errors for the Zigbee bridge package.
var (
	// ErrInvalidMessage is returned when an inbound payload cannot be parsed.
	ErrInvalidMessage = errors.New("zigbee: invalid message")

	// ErrUnknownDevice is returned for traffic from a device that has not
	// been interviewed.
	ErrUnknownDevice = errors.New("zigbee: unknown device")

	// ErrUnknownKind is returned for an inbound topic kind the bridge does
	// not handle.
	ErrUnknownKind = errors.New("zigbee: unknown message kind")

	// ErrCacheQueueFull is reported when a value is dropped because the
	// state cache worker is behind.
	ErrCacheQueueFull = errors.New("zigbee: state cache queue full")

	// ErrSinkClosed is reported for cache writes after the sink was closed.
	ErrSinkClosed = errors.New("zigbee: sink closed")
)
