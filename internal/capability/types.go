package capability

import (
	"sort"
	"strings"
)

// Capability is a canonical, platform-recognised semantic property of a
// device instance (e.g. "measure_power").
//
// Multi-channel devices expose sub-capabilities with a dotted suffix:
// "measure_power.a", "onoff.gang2". The part before the dot is the base.
type Capability string

// Control capabilities.
const (
	OnOff Capability = "onoff"
	Dim   Capability = "dim"
)

// Metering capabilities.
const (
	MeasurePower     Capability = "measure_power"
	MeterPower       Capability = "meter_power"
	MeasureVoltage   Capability = "measure_voltage"
	MeasureCurrent   Capability = "measure_current"
	MeasureFrequency Capability = "measure_frequency"
)

// Environment capabilities.
const (
	MeasureTemperature Capability = "measure_temperature"
	MeasureHumidity    Capability = "measure_humidity"
	MeasureLuminance   Capability = "measure_luminance"
	MeasureBattery     Capability = "measure_battery"
	AlarmBattery       Capability = "alarm_battery"
)

// Detection capabilities.
const (
	AlarmMotion  Capability = "alarm_motion"
	AlarmContact Capability = "alarm_contact"
	AlarmWater   Capability = "alarm_water"
	AlarmSmoke   Capability = "alarm_smoke"
)

// Button capabilities.
const (
	Button Capability = "button"
)

// AllCapabilities returns every recognised base capability.
func AllCapabilities() []Capability {
	return []Capability{
		// Control
		OnOff, Dim,
		// Metering
		MeasurePower, MeterPower, MeasureVoltage, MeasureCurrent, MeasureFrequency,
		// Environment
		MeasureTemperature, MeasureHumidity, MeasureLuminance, MeasureBattery, AlarmBattery,
		// Detection
		AlarmMotion, AlarmContact, AlarmWater, AlarmSmoke,
		// Button
		Button,
	}
}

// Base returns the capability without its sub-capability suffix.
func (c Capability) Base() Capability {
	if i := strings.IndexByte(string(c), '.'); i >= 0 {
		return c[:i]
	}
	return c
}

// Sub returns c with a sub-capability suffix ("measure_power" + "a").
func (c Capability) Sub(suffix string) Capability {
	if suffix == "" {
		return c
	}
	return Capability(string(c.Base()) + "." + suffix)
}

// Class is the canonical device class used for denylist enforcement.
type Class string

// Device classes.
const (
	ClassSensor     Class = "sensor"
	ClassSocket     Class = "socket"
	ClassLight      Class = "light"
	ClassButton     Class = "button"
	ClassThermostat Class = "thermostat"
	ClassOther      Class = "other"
)

// AllClasses returns every recognised device class.
func AllClasses() []Class {
	return []Class{ClassSensor, ClassSocket, ClassLight, ClassButton, ClassThermostat, ClassOther}
}

// Set is an ordered-on-output set of capabilities.
type Set map[Capability]struct{}

// NewSet builds a set from a list.
func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Add inserts c.
func (s Set) Add(c Capability) { s[c] = struct{}{} }

// Sorted returns the members in lexical order.
func (s Set) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
