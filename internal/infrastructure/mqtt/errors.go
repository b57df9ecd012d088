package mqtt

import "errors"

// Sentinel errors of the broker client. Wrapped with detail; match with
// errors.Is.
var (
	// ErrNotConnected means the broker link is down. Capability writes
	// issued meanwhile are rejected, not queued.
	ErrNotConnected = errors.New("mqtt: broker not connected")

	// ErrConnectionFailed means the initial connect did not complete.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed means the broker rejected a publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrAckTimeout means the broker did not acknowledge a publish or
	// (un)subscribe in time. For async publishes it is only reported to
	// the completion callback.
	ErrAckTimeout = errors.New("mqtt: broker acknowledgement timed out")

	// ErrPayloadTooLarge means a payload exceeded maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	// ErrSubscribeFailed means an inbound topic could not be subscribed.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed means an inbound topic could not be released.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrNilHandler is returned by Subscribe without a handler.
	ErrNilHandler = errors.New("mqtt: nil message handler")

	// ErrInvalidQoS means a QoS outside 0-2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic means an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
