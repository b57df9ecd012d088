package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrNilState is returned when Apply is called without a device state.
	ErrNilState = errors.New("dispatch: nil state")

	// ErrNilProfile is returned when Apply is called without a profile.
	ErrNilProfile = errors.New("dispatch: nil profile")
)
