package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

const validCatalogYAML = `
fingerprints:
  - pattern: "_TZE204_newmeter"
    profile: dual_channel_meter
entries:
  - model: TS0601
    manufacturer: _TZE204_newmeter
    descriptor:
      canonical_type: energy_meter
      sub_type: bidirectional_2ch
      class: sensor
      power_source: mains
      capabilities: [measure_power, measure_power.a, measure_power.b]
      recommended_profile: dual_channel_meter
  - manufacturer_prefix: _TZE284_
    descriptor:
      canonical_type: thermostat
      class: thermostat
      capabilities: [measure_temperature]
      recommended_profile: climate_sensor
`

func TestParseCatalog_Valid(t *testing.T) {
	c, err := ParseCatalog([]byte(validCatalogYAML), profile.Builtin())
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	if len(c.Fingerprints) != 1 || len(c.Entries) != 2 {
		t.Fatalf("ParseCatalog() = %d fingerprints, %d entries", len(c.Fingerprints), len(c.Entries))
	}
	if c.Entries[1].Descriptor.PowerSource != PowerUnknown {
		t.Errorf("missing power_source = %q, want unknown", c.Entries[1].Descriptor.PowerSource)
	}

	m, err := NewMatcher(Merge(DefaultCatalog(), c))
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	if got := m.SelectProfile("_TZE204_newmeter"); got != profile.DualChannelMeter {
		t.Errorf("SelectProfile() = %q", got)
	}
	d := m.ResolveDescriptor("TS0601", "_TZE284_zzz")
	if d == nil || d.CanonicalType != "thermostat" {
		t.Errorf("overlay prefix entry should win its tie: %+v", d)
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "fingerprints: [unclosed"},
		{"unknown top-level key", "devices: []"},
		{"fingerprint without profile", "fingerprints:\n  - pattern: abc\n"},
		{"bad class", `
entries:
  - model: M1
    descriptor:
      canonical_type: x
      class: toaster
      capabilities: []
      recommended_profile: generic_tuya
`},
		{"entry without key", `
entries:
  - manufacturer: ACME
    descriptor:
      canonical_type: x
      class: sensor
      capabilities: []
      recommended_profile: generic_tuya
`},
		{"unknown profile", `
fingerprints:
  - pattern: abc
    profile: does_not_exist
`},
		{"unknown capability", `
entries:
  - model: M1
    descriptor:
      canonical_type: x
      class: sensor
      capabilities: [teleport]
      recommended_profile: generic_tuya
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml), profile.Builtin())
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("ParseCatalog() error = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestParseCatalog_Empty(t *testing.T) {
	c, err := ParseCatalog(nil, profile.Builtin())
	if err != nil {
		t.Fatalf("ParseCatalog(nil) error = %v", err)
	}
	if len(c.Entries) != 0 || len(c.Fingerprints) != 0 || c.Fallback != "" {
		t.Errorf("ParseCatalog(nil) = %+v, want empty", c)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(validCatalogYAML), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	c, err := LoadCatalog(path, profile.Builtin())
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(c.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(c.Entries))
	}
}

func TestLoadCatalog_Missing(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"), profile.Builtin())
	if err == nil {
		t.Error("LoadCatalog() error = nil for missing file")
	}
}
