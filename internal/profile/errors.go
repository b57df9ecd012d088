package profile

import "errors"

// Domain errors for the profile package.
var (
	ErrInvalidProfile    = errors.New("profile: invalid profile")
	ErrDuplicateProfile  = errors.New("profile: duplicate profile name")
	ErrNoFallback        = errors.New("profile: no fallback profile")
	ErrMultipleFallbacks = errors.New("profile: more than one fallback profile")
	ErrUnknownAttribute  = errors.New("profile: unknown attribute")
)
