package identity

import (
	"errors"
	"fmt"
)

// Domain errors for the identity package.
var (
	// ErrNoFallback is returned when a catalog has no fallback profile.
	ErrNoFallback = errors.New("identity: catalog has no fallback profile")

	// ErrInvalidFingerprint is returned for a fingerprint with no pattern or profile.
	ErrInvalidFingerprint = errors.New("identity: invalid fingerprint")

	// ErrInvalidEntry is returned for a descriptor entry with no match key.
	ErrInvalidEntry = errors.New("identity: invalid descriptor entry")

	// ErrInvalidCatalog is returned when a catalog file fails validation.
	ErrInvalidCatalog = errors.New("identity: invalid catalog file")
)

func invalidFingerprint(i int) error {
	return fmt.Errorf("%w: index %d", ErrInvalidFingerprint, i)
}

func invalidEntry(i int) error {
	return fmt.Errorf("%w: index %d", ErrInvalidEntry, i)
}
