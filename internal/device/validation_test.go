package device

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr bool
	}{
		{"valid", func(*Device) {}, false},
		{"empty id", func(d *Device) { d.ID = "" }, true},
		{"id with wildcard", func(d *Device) { d.ID = "plug+" }, true},
		{"id too long", func(d *Device) { d.ID = strings.Repeat("x", maxIDLength+1) }, true},
		{"blank name", func(d *Device) { d.Name = "  " }, true},
		{"name too long", func(d *Device) { d.Name = strings.Repeat("n", maxNameLength+1) }, true},
		{"valid ieee", func(d *Device) { d.IEEEAddress = "0x00158d0001a2b3c4" }, false},
		{"upper-case ieee", func(d *Device) { d.IEEEAddress = "0x00158D0001A2B3C4" }, true},
		{"short ieee", func(d *Device) { d.IEEEAddress = "0x1234" }, true},
		{"unknown class", func(d *Device) { d.Class = "toaster" }, true},
		{"unknown capability", func(d *Device) { d.Capabilities = append(d.Capabilities, "teleport") }, true},
		{"sub-capability", func(d *Device) { d.Capabilities = append(d.Capabilities, capability.OnOff.Sub("gang2")) }, false},
		{"zero gangs", func(d *Device) { d.GangCount = 0 }, true},
		{"negative calibration", func(d *Device) { d.Settings.CalibrationRatio = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDevice("m1")
			tt.mutate(d)
			err := ValidateDevice(d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDevice) {
				t.Errorf("error %v does not wrap ErrInvalidDevice", err)
			}
		})
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		ratio float64
		ok    bool
	}{
		{0, true},
		{1, true},
		{maxCalibrationRatio, true},
		{maxCalibrationRatio + 0.01, false},
		{-1, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		err := ValidateSettings(Settings{CalibrationRatio: tt.ratio})
		if (err == nil) != tt.ok {
			t.Errorf("ValidateSettings(%v) error = %v, want ok=%v", tt.ratio, err, tt.ok)
		}
	}
}

func TestNormaliseIEEE(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"00158D0001A2B3C4":     "0x00158d0001a2b3c4",
		"0x00158d0001a2b3c4":   "0x00158d0001a2b3c4",
		" 0XABCDEF0123456789 ": "0xabcdef0123456789",
	}
	for in, want := range tests {
		if got := NormaliseIEEE(in); got != want {
			t.Errorf("NormaliseIEEE(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := GenerateID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if !validID(id) {
			t.Fatalf("generated id %q is not a valid device id", id)
		}
		seen[id] = true
	}
}

func TestDevice_DeepCopyAndIdentity(t *testing.T) {
	d := fullDevice()
	cp := d.DeepCopy()
	cp.Endpoints[0].InClusters[0] = 0xFFFF
	cp.Capabilities[0] = capability.Dim
	if d.Endpoints[0].InClusters[0] == 0xFFFF || d.Capabilities[0] == capability.Dim {
		t.Error("DeepCopy shares slices")
	}

	if d.Identity() != d.Manufacturer {
		t.Errorf("Identity() = %q, want manufacturer", d.Identity())
	}
	d.Manufacturer = ""
	if d.Identity() != d.Model {
		t.Errorf("Identity() = %q, want model", d.Identity())
	}
	var nilDevice *Device
	if nilDevice.DeepCopy() != nil {
		t.Error("nil DeepCopy should be nil")
	}
}
