package datapoint

import "errors"

// Domain errors for the datapoint package.
var (
	// ErrDecodingFailed is returned when a payload cannot be decoded as the
	// requested type.
	ErrDecodingFailed = errors.New("datapoint: decoding failed")

	// ErrEncodingFailed is returned when a value cannot be encoded.
	ErrEncodingFailed = errors.New("datapoint: encoding failed")

	// ErrTruncatedFrame is returned when a multi-datapoint report ends in the
	// middle of a record.
	ErrTruncatedFrame = errors.New("datapoint: truncated frame")
)
