package capability

// Denylist maps a device class to capabilities it must never receive.
type Denylist map[Class]Set

// DefaultDenylist returns the fixed per-class denylist.
//
// Sensors are read-only and never get actuation. Wireless buttons send
// commands rather than receive them, so they get neither actuation nor
// measurement capabilities. Sockets switch, they do not dim.
func DefaultDenylist() Denylist {
	return Denylist{
		ClassSensor: NewSet(OnOff, Dim),
		ClassButton: NewSet(
			OnOff,
			Dim,
			AlarmMotion,
			AlarmContact,
			MeasurePower,
			MeasureVoltage,
			MeasureCurrent,
		),
		ClassSocket: NewSet(Dim),
	}
}

// Denies reports whether class must not receive c. Sub-capabilities are
// checked by their base id.
func (d Denylist) Denies(class Class, c Capability) bool {
	set, ok := d[class]
	if !ok {
		return false
	}
	return set.Has(c) || set.Has(c.Base())
}
