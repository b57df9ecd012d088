package mqtt

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the root of every topic when no prefix is configured.
const DefaultPrefix = "graylogic"

// Protocol is the protocol segment used by this service.
const Protocol = "zigbee"

// Inbound message kinds published by the Zigbee transport.
const (
	KindInterview = "interview"
	KindDatapoint = "datapoint"
	KindAttribute = "attribute"
	KindSettings  = "settings"
	KindRemoved   = "removed"
)

// InboundKinds lists every inbound kind the service subscribes to.
func InboundKinds() []string {
	return []string{KindInterview, KindDatapoint, KindAttribute, KindSettings, KindRemoved}
}

// Topics provides builders for the service's MQTT topics.
//
// Inbound topics use {prefix}/zigbee/{kind}/{device}. Outbound capability
// values use {prefix}/state/zigbee/{device}/{capability}.
//
//	topics := mqtt.NewTopics("graylogic")
//	topics.CapabilityState("plug-1", "measure_power")
//	// Returns: "graylogic/state/zigbee/plug-1/measure_power"
type Topics struct {
	Prefix string
}

// NewTopics returns builders rooted at prefix (DefaultPrefix when empty).
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return t.Prefix
}

// =============================================================================
// Inbound
// =============================================================================

// Inbound returns the topic for an inbound message kind and device.
//
// Example: graylogic/zigbee/datapoint/0x00158d0001a2b3c4
func (t Topics) Inbound(kind, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix(), Protocol, kind, deviceID)
}

// AllInbound returns the wildcard subscription for one inbound kind.
//
// Example: graylogic/zigbee/datapoint/+
func (t Topics) AllInbound(kind string) string {
	return t.Inbound(kind, "+")
}

// ParseInbound splits an inbound topic into kind and device id.
// ok is false for topics outside the inbound hierarchy.
func (t Topics) ParseInbound(topic string) (kind, deviceID string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix()+"/"+Protocol+"/")
	if !found {
		return "", "", false
	}
	kind, deviceID, found = strings.Cut(rest, "/")
	if !found || kind == "" || deviceID == "" || strings.Contains(deviceID, "/") {
		return "", "", false
	}
	return kind, deviceID, true
}

// =============================================================================
// Outbound
// =============================================================================

// CapabilityState returns the retained topic for one capability value.
//
// Example: graylogic/state/zigbee/plug-1/measure_power.a
func (t Topics) CapabilityState(deviceID, capability string) string {
	return fmt.Sprintf("%s/state/%s/%s/%s", t.prefix(), Protocol, deviceID, capability)
}

// DeviceStates returns the wildcard for every capability value of a device.
func (t Topics) DeviceStates(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s/#", t.prefix(), Protocol, deviceID)
}

// Capabilities returns the retained topic announcing a device's capability set.
//
// Example: graylogic/capabilities/zigbee/plug-1
func (t Topics) Capabilities(deviceID string) string {
	return fmt.Sprintf("%s/capabilities/%s/%s", t.prefix(), Protocol, deviceID)
}

// Health returns the service health topic.
//
// Example: graylogic/health/zigbee
func (t Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", t.prefix(), Protocol)
}

// SystemStatus returns the topic for online/offline status (LWT target).
//
// Example: graylogic/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// ValidDeviceID reports whether id can be used as a single topic level.
func ValidDeviceID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/+#")
}
