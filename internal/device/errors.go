package device

import "errors"

// Domain errors for the device package.
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device whose ID or IEEE
	// address is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidCapability is returned when granting an unknown capability.
	ErrInvalidCapability = errors.New("device: invalid capability")

	// ErrInvalidSettings is returned for out-of-range settings.
	ErrInvalidSettings = errors.New("device: invalid settings")
)
