package zigbee

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

// MQTT message types exchanged with the Zigbee transport and consumers.

// InterviewMessage carries the identity inputs of a newly interviewed device.
// Topic: graylogic/zigbee/interview/{device}
type InterviewMessage struct {
	Name         string              `json:"name,omitempty"`
	IEEEAddress  string              `json:"ieee_address,omitempty"`
	Model        string              `json:"model"`
	Manufacturer string              `json:"manufacturer"`
	Class        capability.Class    `json:"class,omitempty"`
	Endpoints    []topology.Endpoint `json:"endpoints,omitempty"`
}

// DatapointMessage carries one or more Tuya datapoints.
// Topic: graylogic/zigbee/datapoint/{device}
//
// Either Frames (already split by the transport) or Raw (a hex-encoded
// 0xEF00 data-report payload) is set. When both are present Frames wins.
type DatapointMessage struct {
	Frames []FrameMessage `json:"frames,omitempty"`
	Raw    string         `json:"raw,omitempty"`
}

// FrameMessage is one datapoint. A nil DP is a frame without an id.
type FrameMessage struct {
	DP   *int   `json:"dp"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// Frame converts the message to a datapoint frame. Unrecognised type names
// decode as raw.
func (m FrameMessage) Frame() (datapoint.Frame, error) {
	payload, err := decodeHex(m.Data)
	if err != nil {
		return datapoint.Frame{}, fmt.Errorf("%w: dp data: %w", ErrInvalidMessage, err)
	}
	tag, _ := datapoint.ParseTypeTag(m.Type)
	if m.DP == nil {
		return datapoint.Frame{Tag: tag, Payload: payload}, nil
	}
	return datapoint.NewFrame(*m.DP, tag, payload), nil
}

// DecodeFrames returns the frames carried by the message. A truncated raw
// payload yields the frames parsed before the truncation together with the
// parse error.
func (m DatapointMessage) DecodeFrames() ([]datapoint.Frame, error) {
	if len(m.Frames) > 0 {
		frames := make([]datapoint.Frame, 0, len(m.Frames))
		for _, fm := range m.Frames {
			f, err := fm.Frame()
			if err != nil {
				return frames, err
			}
			frames = append(frames, f)
		}
		return frames, nil
	}

	if m.Raw == "" {
		return nil, fmt.Errorf("%w: no frames", ErrInvalidMessage)
	}
	buf, err := decodeHex(m.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: raw payload: %w", ErrInvalidMessage, err)
	}
	_, frames, err := datapoint.ParseFrames(buf)
	return frames, err
}

// AttributeMessage is a standard (non-EF00) attribute report.
// Topic: graylogic/zigbee/attribute/{device}
type AttributeMessage struct {
	Attribute profile.Attribute `json:"attribute"`
	Value     json.RawMessage   `json:"value"`
}

// DecodedValue converts the JSON value to a datapoint value: booleans stay
// booleans, integral numbers become integers and anything else (null,
// fractions, strings) is undefined.
func (m AttributeMessage) DecodedValue() datapoint.Value {
	raw := bytes.TrimSpace(m.Value)
	if len(raw) == 0 {
		return datapoint.Undefined()
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return datapoint.Undefined()
	}

	switch x := v.(type) {
	case bool:
		return datapoint.Bool(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return datapoint.Int(n)
		}
	}
	return datapoint.Undefined()
}

// SettingsMessage updates per-device settings.
// Topic: graylogic/zigbee/settings/{device}
type SettingsMessage struct {
	CalibrationRatio *float64 `json:"calibration_ratio"`
}

// StateMessage is published for every capability write.
// Topic: graylogic/state/zigbee/{device}/{capability}
// QoS: configured, Retained: Yes
type StateMessage struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"ts"`
}

// CapabilitiesMessage announces a device's capability set after an
// interview.
// Topic: graylogic/capabilities/zigbee/{device}
// Retained: Yes
type CapabilitiesMessage struct {
	DeviceID      string                  `json:"device_id"`
	Class         capability.Class        `json:"class"`
	Profile       profile.Name            `json:"profile"`
	CanonicalType string                  `json:"canonical_type,omitempty"`
	GangCount     int                     `json:"gang_count"`
	Capabilities  []capability.Capability `json:"capabilities"`
	Blocked       []capability.Capability `json:"blocked,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// HealthStatus is the bridge status published on the health topic.
type HealthStatus string

const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/zigbee
// Retained: Yes
type HealthMessage struct {
	Status        HealthStatus `json:"status"`
	Timestamp     time.Time    `json:"timestamp"`
	Version       string       `json:"version,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Devices       int          `json:"devices"`
	Sessions      int          `json:"sessions"`
}

// decodeHex accepts an optional 0x prefix and ignores spaces.
func decodeHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
