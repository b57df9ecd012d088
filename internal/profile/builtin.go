package profile

import (
	"sort"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// Set is an immutable collection of profiles with one fallback.
type Set struct {
	profiles map[Name]*Profile
	fallback Name
}

// NewSet builds a set. Exactly one profile must be marked Fallback;
// otherwise ErrNoFallback or ErrMultipleFallbacks is returned.
func NewSet(profiles ...*Profile) (*Set, error) {
	s := &Set{profiles: make(map[Name]*Profile, len(profiles))}
	for _, p := range profiles {
		if p == nil || p.Name == "" {
			return nil, ErrInvalidProfile
		}
		if _, dup := s.profiles[p.Name]; dup {
			return nil, ErrDuplicateProfile
		}
		s.profiles[p.Name] = p
		if p.Fallback {
			if s.fallback != "" {
				return nil, ErrMultipleFallbacks
			}
			s.fallback = p.Name
		}
	}
	if s.fallback == "" {
		return nil, ErrNoFallback
	}
	return s, nil
}

// Lookup returns the named profile, or the fallback when name is unknown.
func (s *Set) Lookup(name Name) *Profile {
	if p, ok := s.profiles[name]; ok {
		return p
	}
	return s.profiles[s.fallback]
}

// Has reports whether name is a known profile.
func (s *Set) Has(name Name) bool {
	_, ok := s.profiles[name]
	return ok
}

// Fallback returns the fallback profile.
func (s *Set) Fallback() *Profile {
	return s.profiles[s.fallback]
}

// Names returns all profile names sorted.
func (s *Set) Names() []Name {
	out := make([]Name, 0, len(s.profiles))
	for n := range s.profiles {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var builtin *Set

func init() {
	s, err := NewSet(
		dualChannelMeter(),
		singleChannelMeter(),
		climateSensor(),
		presenceRadar(),
		sceneButton(),
		wallSwitch(),
		genericTuya(),
	)
	if err != nil {
		panic("profile: invalid built-in set: " + err.Error())
	}
	builtin = s
}

// Builtin returns the built-in profile set.
func Builtin() *Set {
	return builtin
}

// Two-channel bidirectional energy meter (PJ-1203A family).
func dualChannelMeter() *Profile {
	return &Profile{
		Name: DualChannelMeter,
		Fields: map[int]FieldRule{
			101: {Name: "power_a", Capability: capability.MeasurePower.Sub("a"), Scale: Div(10), Channel: ChannelA, Quantity: QuantityPower},
			105: {Name: "power_b", Capability: capability.MeasurePower.Sub("b"), Scale: Div(10), Channel: ChannelB, Quantity: QuantityPower},
			102: {Name: "direction_a", Directional: true, Channel: ChannelA},
			104: {Name: "direction_b", Directional: true, Channel: ChannelB},
			106: {Name: "energy_forward_a", Capability: capability.MeterPower.Sub("a"), Scale: Div(100), Channel: ChannelA, Quantity: QuantityEnergy},
			107: {Name: "energy_forward_b", Capability: capability.MeterPower.Sub("b"), Scale: Div(100), Channel: ChannelB, Quantity: QuantityEnergy},
			111: {Name: "frequency", Capability: capability.MeasureFrequency, Scale: Div(100)},
			112: {Name: "voltage", Capability: capability.MeasureVoltage, Scale: Div(10)},
			113: {Name: "current_a", Capability: capability.MeasureCurrent.Sub("a"), Scale: Div(1000), Channel: ChannelA, Quantity: QuantityCurrent},
			114: {Name: "current_b", Capability: capability.MeasureCurrent.Sub("b"), Scale: Div(1000), Channel: ChannelB, Quantity: QuantityCurrent},
		},
		Aggregates: []Aggregate{
			{Capability: capability.MeasurePower, Quantity: QuantityPower, Channels: []Channel{ChannelA, ChannelB}},
			{Capability: capability.MeterPower, Quantity: QuantityEnergy, Channels: []Channel{ChannelA, ChannelB}},
		},
	}
}

// Metering smart plug.
func singleChannelMeter() *Profile {
	return &Profile{
		Name: SingleChannelMeter,
		Fields: map[int]FieldRule{
			1:  {Name: "switch", Capability: capability.OnOff, Boolean: true},
			17: {Name: "energy", Capability: capability.MeterPower, Scale: Div(100), Quantity: QuantityEnergy},
			18: {Name: "current", Capability: capability.MeasureCurrent, Scale: Div(1000), Quantity: QuantityCurrent},
			19: {Name: "power", Capability: capability.MeasurePower, Scale: Div(10), Quantity: QuantityPower},
			20: {Name: "voltage", Capability: capability.MeasureVoltage, Scale: Div(10)},
		},
	}
}

func climateSensor() *Profile {
	return &Profile{
		Name: ClimateSensor,
		Fields: map[int]FieldRule{
			1: {Name: "temperature", Capability: capability.MeasureTemperature, Scale: Div(10), Signed: true},
			2: {Name: "humidity", Capability: capability.MeasureHumidity},
			4: {Name: "battery", Capability: capability.MeasureBattery},
		},
	}
}

func presenceRadar() *Profile {
	return &Profile{
		Name: PresenceRadar,
		Fields: map[int]FieldRule{
			1:   {Name: "presence", Capability: capability.AlarmMotion, Boolean: true},
			103: {Name: "illuminance", Capability: capability.MeasureLuminance},
		},
	}
}

func sceneButton() *Profile {
	return &Profile{
		Name: SceneButton,
		Fields: map[int]FieldRule{
			10: {Name: "battery", Capability: capability.MeasureBattery},
		},
	}
}

func wallSwitch() *Profile {
	return &Profile{
		Name: WallSwitch,
		Fields: map[int]FieldRule{
			1: {Name: "switch_1", Capability: capability.OnOff, Boolean: true},
			2: {Name: "switch_2", Capability: capability.OnOff.Sub("gang2"), Boolean: true},
			3: {Name: "switch_3", Capability: capability.OnOff.Sub("gang3"), Boolean: true},
			4: {Name: "switch_4", Capability: capability.OnOff.Sub("gang4"), Boolean: true},
		},
	}
}

// Fallback for unidentified Tuya devices. Ids 101 and 105 are power on
// some meters and direction flags on others.
func genericTuya() *Profile {
	return &Profile{
		Name:     GenericTuya,
		Fallback: true,
		Fields: map[int]FieldRule{
			1:   {Name: "switch", Capability: capability.OnOff, Boolean: true},
			4:   {Name: "battery", Capability: capability.MeasureBattery},
			101: {Name: "power_a", Capability: capability.MeasurePower.Sub("a"), Scale: Div(10), Channel: ChannelA, Quantity: QuantityPower, AmbiguousWith: ChannelA},
			105: {Name: "power_b", Capability: capability.MeasurePower.Sub("b"), Scale: Div(10), Channel: ChannelB, Quantity: QuantityPower, AmbiguousWith: ChannelB},
		},
		Aggregates: []Aggregate{
			{Capability: capability.MeasurePower, Quantity: QuantityPower, Channels: []Channel{ChannelA, ChannelB}},
		},
	}
}
