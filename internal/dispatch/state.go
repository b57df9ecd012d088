package dispatch

import (
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// DefaultCalibrationRatio leaves measured values unchanged.
const DefaultCalibrationRatio = 1.0

// State is the canonical per-instance state the dispatcher reads and
// updates: per-channel sub-values of each aggregated quantity, per-channel
// direction flags and the settings snapshot.
//
// State is not safe for concurrent use. Each device session owns one and
// serialises access to it.
type State struct {
	DeviceID string

	values      map[profile.Quantity]map[profile.Channel]float64
	reversed    map[profile.Channel]bool
	calibration float64
}

// NewState returns a zeroed state for a device.
func NewState(deviceID string) *State {
	return &State{
		DeviceID:    deviceID,
		values:      make(map[profile.Quantity]map[profile.Channel]float64),
		reversed:    make(map[profile.Channel]bool),
		calibration: DefaultCalibrationRatio,
	}
}

// CalibrationRatio returns the multiplier applied to power and current.
func (s *State) CalibrationRatio() float64 {
	return s.calibration
}

// SetCalibrationRatio updates the calibration snapshot. Non-positive ratios
// reset it to DefaultCalibrationRatio.
func (s *State) SetCalibrationRatio(r float64) {
	if r <= 0 {
		r = DefaultCalibrationRatio
	}
	s.calibration = r
}

// Value returns the stored sub-value for a quantity on a channel.
func (s *State) Value(q profile.Quantity, ch profile.Channel) (float64, bool) {
	v, ok := s.values[q][ch]
	return v, ok
}

// Reversed reports whether a channel's flow direction is reversed.
func (s *State) Reversed(ch profile.Channel) bool {
	return s.reversed[ch]
}

func (s *State) setValue(q profile.Quantity, ch profile.Channel, v float64) {
	m, ok := s.values[q]
	if !ok {
		m = make(map[profile.Channel]float64)
		s.values[q] = m
	}
	m[ch] = v
}

func (s *State) setReversed(ch profile.Channel, rev bool) {
	s.reversed[ch] = rev
}

// sum totals the stored values of q over channels. ok is false when none of
// the channels has a value yet.
func (s *State) sum(q profile.Quantity, channels []profile.Channel) (total float64, ok bool) {
	for _, ch := range channels {
		if v, has := s.values[q][ch]; has {
			total += v
			ok = true
		}
	}
	return total, ok
}
