package influxdb_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "zigbee",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip skips the test if InfluxDB is not running.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// ─── Connection ─────────────────────────────────────────────────────

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestZeroClient(t *testing.T) {
	client := &influxdb.Client{}

	if client.IsConnected() {
		t.Error("IsConnected() = true for zero client")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := client.WriteCapability("meter-1", "measure_power", 1.0); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("WriteCapability() error = %v, want ErrNotConnected", err)
	}
	client.WriteEngineCounter("meter-1", "applied", 1)
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// ─── Points ─────────────────────────────────────────────────────────

func TestCapabilityPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	tests := []struct {
		name       string
		capability string
		value      any
		wantOK     bool
		contains   []string
		excludes   []string
	}{
		{
			name:       "channel sub-capability",
			capability: "measure_power.a",
			value:      120.0,
			wantOK:     true,
			contains:   []string{"capability,", "capability=measure_power", "channel=a", "device_id=meter-1", "value=120"},
		},
		{
			name:       "base capability has no channel tag",
			capability: "measure_voltage",
			value:      230.5,
			wantOK:     true,
			contains:   []string{"capability=measure_voltage", "value=230.5"},
			excludes:   []string{"channel="},
		},
		{
			name:       "integer stored as float",
			capability: "measure_battery",
			value:      int64(87),
			wantOK:     true,
			contains:   []string{"value=87"},
		},
		{
			name:       "boolean stored as state",
			capability: "onoff.gang2",
			value:      true,
			wantOK:     true,
			contains:   []string{"channel=gang2", "state=true"},
		},
		{name: "string rejected", capability: "measure_power", value: "x"},
		{name: "bytes rejected", capability: "measure_power", value: []byte{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, ok := influxdb.CapabilityPoint("meter-1", tt.capability, tt.value, ts)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			line := write.PointToLineProtocol(point, time.Second)
			for _, s := range tt.contains {
				if !strings.Contains(line, s) {
					t.Errorf("line %q missing %q", line, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(line, s) {
					t.Errorf("line %q should not contain %q", line, s)
				}
			}
		})
	}
}

// ─── Live server ────────────────────────────────────────────────────

func TestWriteCapability_Live(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	var asyncErr error
	client.SetOnError(func(err error) { asyncErr = err })

	if err := client.WriteCapability("test-meter", "measure_power.a", 120.0); err != nil {
		t.Fatalf("WriteCapability() error = %v", err)
	}
	if err := client.WriteCapability("test-meter", "measure_power", "bad"); !errors.Is(err, influxdb.ErrWriteFailed) {
		t.Errorf("WriteCapability(string) error = %v, want ErrWriteFailed", err)
	}
	client.WriteEngineCounter("test-meter", "applied", 3)
	client.Flush()

	if asyncErr != nil {
		t.Errorf("async write error = %v", asyncErr)
	}
}
