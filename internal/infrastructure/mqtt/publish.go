package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// validatePublish checks topic, QoS and payload size.
func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes on %s exceeds %d", ErrPayloadTooLarge, len(payload), topic, maxPayloadSize)
	}
	return nil
}

// Publish sends a message and waits for the broker acknowledgment.
//
// Parameters:
//   - topic: The topic to publish to
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: publish on %s after %v", ErrAckTimeout, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishAsync hands a message to the client without waiting.
//
// Validation and connection errors are returned immediately. Otherwise the
// broker acknowledgment is awaited in a separate goroutine and its outcome,
// including a timeout, is passed to done (if non-nil). The caller is never
// blocked on the broker.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		var err error
		switch {
		case !token.WaitTimeout(defaultPublishTimeout):
			err = fmt.Errorf("%w: publish on %s after %v", ErrAckTimeout, topic, defaultPublishTimeout)
		case token.Error() != nil:
			err = fmt.Errorf("%w: %w", ErrPublishFailed, token.Error())
		}
		if err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT async publish failed", "topic", topic, "error", err)
			}
		}
		if done != nil {
			done(err)
		}
	}()

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, c.QoS(), true)
}
