package zigbee

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/mqtt"
)

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// mockMQTT implements MQTTClient for testing. Async publishes complete
// immediately.
type mockMQTT struct {
	mu           sync.Mutex
	topics       mqtt.Topics
	published    []mockPublish
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	publishErr   error
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{
		topics:   mqtt.NewTopics("graylogic"),
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (m *mockMQTT) Topics() mqtt.Topics { return m.topics }

func (m *mockMQTT) QoS() byte { return 1 }

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *mockMQTT) PublishAsync(topic string, payload []byte, qos byte, retained bool, done func(error)) error {
	err := m.Publish(topic, payload, qos, retained)
	if err == nil && done != nil {
		done(nil)
	}
	return err
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if handler == nil {
		return errors.New("nil handler")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *mockMQTT) getPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublish, len(m.published))
	copy(out, m.published)
	return out
}

func (m *mockMQTT) subscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// last returns the most recent publish on topic.
func (m *mockMQTT) last(topic string) (mockPublish, bool) {
	pubs := m.getPublished()
	for i := len(pubs) - 1; i >= 0; i-- {
		if pubs[i].Topic == topic {
			return pubs[i], true
		}
	}
	return mockPublish{}, false
}

// count returns the number of publishes on topic.
func (m *mockMQTT) count(topic string) int {
	n := 0
	for _, p := range m.getPublished() {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

// stateValue decodes the last published value of a capability.
func stateValue(t *testing.T, m *mockMQTT, deviceID, capability string) any {
	t.Helper()
	p, ok := m.last(m.topics.CapabilityState(deviceID, capability))
	if !ok {
		t.Fatalf("no value published for %s/%s", deviceID, capability)
	}
	if !p.Retained {
		t.Errorf("%s/%s published without retain", deviceID, capability)
	}
	var msg StateMessage
	if err := json.Unmarshal(p.Payload, &msg); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	return msg.Value
}
