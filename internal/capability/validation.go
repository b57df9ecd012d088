package capability

import "fmt"

// Pre-computed validation sets.
var (
	validCapabilities map[Capability]struct{}
	validClasses      map[Class]struct{}
)

func init() {
	validCapabilities = make(map[Capability]struct{}, len(AllCapabilities()))
	for _, c := range AllCapabilities() {
		validCapabilities[c] = struct{}{}
	}

	validClasses = make(map[Class]struct{}, len(AllClasses()))
	for _, c := range AllClasses() {
		validClasses[c] = struct{}{}
	}
}

// Validate checks that c (or its base, for sub-capabilities) is recognised.
func Validate(c Capability) error {
	if c == "" {
		return fmt.Errorf("%w: empty", ErrUnknownCapability)
	}
	if _, ok := validCapabilities[c.Base()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, c)
	}
	return nil
}

// IsValidClass reports whether c is a recognised device class.
func IsValidClass(c Class) bool {
	_, ok := validClasses[c]
	return ok
}

// ParseClass converts a string to a Class, falling back to ClassOther.
func ParseClass(s string) Class {
	c := Class(s)
	if IsValidClass(c) {
		return c
	}
	return ClassOther
}
