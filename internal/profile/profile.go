package profile

import (
	"math"
	"sort"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// Name identifies an interpretation profile.
type Name string

// Built-in profile names.
const (
	DualChannelMeter   Name = "dual_channel_meter"
	SingleChannelMeter Name = "single_channel_meter"
	ClimateSensor      Name = "climate_sensor"
	PresenceRadar      Name = "presence_radar"
	SceneButton        Name = "scene_button"
	WallSwitch         Name = "wall_switch"
	GenericTuya        Name = "generic_tuya"
)

// Channel identifies a measurement channel on a multi-channel device.
type Channel uint8

// Channels.
const (
	ChannelNone Channel = iota
	ChannelA
	ChannelB
)

// String returns the sub-capability suffix for the channel.
func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "a"
	case ChannelB:
		return "b"
	default:
		return ""
	}
}

// Quantity groups fields that feed the same aggregate.
type Quantity uint8

// Quantities.
const (
	QuantityNone Quantity = iota
	QuantityPower
	QuantityEnergy
	QuantityCurrent
)

// String returns the quantity name.
func (q Quantity) String() string {
	switch q {
	case QuantityPower:
		return "power"
	case QuantityEnergy:
		return "energy"
	case QuantityCurrent:
		return "current"
	default:
		return "none"
	}
}

// Scale is a rational scale factor applied to raw integers.
// The zero value means 1/1.
type Scale struct {
	Num int64
	Den int64
}

// Div returns a scale that divides by d.
func Div(d int64) Scale { return Scale{Num: 1, Den: d} }

// Apply scales raw.
func (s Scale) Apply(raw float64) float64 {
	num, den := s.Num, s.Den
	if num == 0 {
		num = 1
	}
	if den == 0 {
		den = 1
	}
	return raw * float64(num) / float64(den)
}

// FieldRule describes how one datapoint id is interpreted.
type FieldRule struct {
	Name string

	// Capability receives a direct write of the scaled value. Empty for
	// fields that only feed state (direction flags, aggregate inputs).
	Capability capability.Capability

	Scale     Scale
	Transform func(float64) float64

	// Signed fields carry a 32-bit two's complement value (temperatures
	// below zero). The decoder itself is unsigned.
	Signed bool

	// Directional fields carry a channel's flow direction flag
	// (0 forward, non-zero reverse) instead of a magnitude.
	Directional bool

	Channel  Channel
	Quantity Quantity

	// Boolean fields write the raw value as a bool (onoff, alarms).
	Boolean bool

	// AmbiguousWith marks a fallback-profile field whose id is also used by
	// other vendors as the direction flag for this channel.
	AmbiguousWith Channel
}

// Aggregate is a capability derived from all per-channel values of one
// quantity.
type Aggregate struct {
	Capability capability.Capability
	Quantity   Quantity
	Channels   []Channel
}

// Profile is an immutable interpretation of a device's datapoint ids.
type Profile struct {
	Name       Name
	Fallback   bool
	Fields     map[int]FieldRule
	Aggregates []Aggregate
}

// Field returns the rule for id.
func (p *Profile) Field(id int) (FieldRule, bool) {
	r, ok := p.Fields[id]
	return r, ok
}

// AggregatesFor returns the aggregates computed over q.
func (p *Profile) AggregatesFor(q Quantity) []Aggregate {
	var out []Aggregate
	for _, a := range p.Aggregates {
		if a.Quantity == q {
			out = append(out, a)
		}
	}
	return out
}

// Capabilities returns every capability the profile can write, sorted.
func (p *Profile) Capabilities() []capability.Capability {
	set := capability.NewSet()
	for _, f := range p.Fields {
		if f.Capability != "" {
			set.Add(f.Capability)
		}
		if f.Capability.Base() == capability.MeasureBattery {
			set.Add(capability.AlarmBattery)
		}
	}
	for _, a := range p.Aggregates {
		set.Add(a.Capability)
	}
	return set.Sorted()
}

// IDs returns the profile's datapoint ids in ascending order.
func (p *Profile) IDs() []int {
	ids := make([]int, 0, len(p.Fields))
	for id := range p.Fields {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Round rounds v to three decimals.
func Round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
