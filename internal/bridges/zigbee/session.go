package zigbee

import (
	"sync"

	"github.com/nerrad567/gray-logic-zigbee/internal/dispatch"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

// session is the runtime context of one device: its interpretation profile,
// topology and canonical state. Events for a device are applied under mu, so
// state is never touched concurrently.
type session struct {
	mu       sync.Mutex
	deviceID string
	profile  *profile.Profile
	topology topology.Descriptor
	state    *dispatch.State
	online   bool
}

func newSession(deviceID string, p *profile.Profile, topo topology.Descriptor, ratio float64) *session {
	state := dispatch.NewState(deviceID)
	state.SetCalibrationRatio(ratio)
	return &session{
		deviceID: deviceID,
		profile:  p,
		topology: topo,
		state:    state,
	}
}

// SessionInfo is a read-only snapshot of a session.
type SessionInfo struct {
	DeviceID         string              `json:"device_id"`
	Profile          profile.Name        `json:"profile"`
	Topology         topology.Descriptor `json:"topology"`
	CalibrationRatio float64             `json:"calibration_ratio"`
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		DeviceID:         s.deviceID,
		Profile:          s.profile.Name,
		Topology:         s.topology,
		CalibrationRatio: s.state.CalibrationRatio(),
	}
}
