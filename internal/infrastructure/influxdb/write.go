package influxdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the service.
const (
	MeasurementCapability = "capability"
	MeasurementEngine     = "engine"
)

// CapabilityPoint builds the point for one capability value.
//
// The capability is split into its base and channel tags, so
// "measure_power.a" is tagged capability=measure_power,channel=a. Numbers
// are stored in the "value" field and booleans in "state". ok is false for
// values that have no time-series representation (strings, bytes).
func CapabilityPoint(deviceID, capability string, value any, ts time.Time) (*write.Point, bool) {
	fields := make(map[string]any, 1)
	switch v := value.(type) {
	case float64:
		fields["value"] = v
	case float32:
		fields["value"] = float64(v)
	case int:
		fields["value"] = float64(v)
	case int64:
		fields["value"] = float64(v)
	case bool:
		fields["state"] = v
	default:
		return nil, false
	}

	base, channel, _ := strings.Cut(capability, ".")
	tags := map[string]string{
		"device_id":  deviceID,
		"capability": base,
	}
	if channel != "" {
		tags["channel"] = channel
	}

	return write.NewPoint(MeasurementCapability, tags, fields, ts), true
}

// WriteCapability records a capability value. It is non-blocking and a
// no-op when disconnected or when the value is not numeric or boolean.
//
// Example:
//
//	client.WriteCapability("meter-1", "measure_power.a", 120.0)
func (c *Client) WriteCapability(deviceID, capability string, value any) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	point, ok := CapabilityPoint(deviceID, capability, value, time.Now())
	if !ok {
		return fmt.Errorf("%w: unsupported value type %T for %s", ErrWriteFailed, value, capability)
	}
	c.writeAPI.WritePoint(point)
	return nil
}

// WriteEngineCounter records an engine event count (datapoints applied,
// capabilities blocked, ...) for a device.
func (c *Client) WriteEngineCounter(deviceID, event string, count int64) {
	if !c.IsConnected() {
		return
	}
	point := write.NewPoint(
		MeasurementEngine,
		map[string]string{"device_id": deviceID, "event": event},
		map[string]any{"count": count},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
