package device

import (
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

// HealthStatus is the last known reachability of a device.
type HealthStatus string

const (
	HealthOnline  HealthStatus = "online"
	HealthOffline HealthStatus = "offline"
	HealthUnknown HealthStatus = "unknown"
)

// Settings is the per-device configuration surface.
type Settings struct {
	// CalibrationRatio scales power and current readings. Zero means unset.
	CalibrationRatio float64 `json:"calibration_ratio,omitempty"`
}

// Device is one Zigbee instance as the service knows it: identity inputs
// from the interview, the resolved profile and descriptor, the capability
// set granted so far and the endpoint topology.
type Device struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	IEEEAddress  string           `json:"ieee_address,omitempty"`
	Model        string           `json:"model"`
	Manufacturer string           `json:"manufacturer"`
	Class        capability.Class `json:"class"`

	Profile       profile.Name         `json:"profile"`
	CanonicalType string               `json:"canonical_type,omitempty"`
	SubType       string               `json:"sub_type,omitempty"`
	PowerSource   identity.PowerSource `json:"power_source"`

	Capabilities []capability.Capability `json:"capabilities"`
	GangCount    int                     `json:"gang_count"`
	Endpoints    []topology.Endpoint     `json:"endpoints,omitempty"`
	Settings     Settings                `json:"settings"`

	HealthStatus HealthStatus `json:"health_status"`
	LastSeen     *time.Time   `json:"last_seen,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasCapability reports whether c has been granted.
func (d *Device) HasCapability(c capability.Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

// Identity returns the string the fingerprint table is matched against:
// the manufacturer name when known, otherwise the model.
func (d *Device) Identity() string {
	if d.Manufacturer != "" {
		return d.Manufacturer
	}
	return d.Model
}

// DeepCopy returns a copy sharing no slices or pointers with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Capabilities = slices.Clone(d.Capabilities)
	if d.Endpoints != nil {
		cp.Endpoints = make([]topology.Endpoint, len(d.Endpoints))
		for i, ep := range d.Endpoints {
			cp.Endpoints[i] = topology.Endpoint{
				ID:          ep.ID,
				InClusters:  slices.Clone(ep.InClusters),
				OutClusters: slices.Clone(ep.OutClusters),
			}
		}
	}
	if d.LastSeen != nil {
		t := *d.LastSeen
		cp.LastSeen = &t
	}
	return &cp
}

// ApplyDescriptor copies the resolved descriptor fields onto d. A nil
// descriptor leaves d unchanged.
func (d *Device) ApplyDescriptor(desc *identity.Descriptor) {
	if desc == nil {
		return
	}
	d.CanonicalType = desc.CanonicalType
	d.SubType = desc.SubType
	d.PowerSource = desc.PowerSource
	if desc.Class != "" {
		d.Class = desc.Class
	}
}
