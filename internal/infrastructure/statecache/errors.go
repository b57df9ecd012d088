package statecache

import "errors"

var (
	// ErrDisabled indicates the cache is disabled in configuration.
	ErrDisabled = errors.New("statecache: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("statecache: connection failed")
)
