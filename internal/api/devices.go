package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-zigbee/internal/bridges/zigbee"
	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/device"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/statecache"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// DeviceResponse is a registry device plus its live session, when open.
type DeviceResponse struct {
	*device.Device
	Session *zigbee.SessionInfo `json:"session,omitempty"`
}

// handleListDevices returns all devices, optionally filtered by class,
// profile, capability and health_status query parameters. Filters combine.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	class := q.Get("class")
	if class != "" && !capability.IsValidClass(capability.Class(class)) {
		writeBadRequest(w, "unknown class: "+class)
		return
	}
	prof := q.Get("profile")
	capStr := q.Get("capability")
	health := q.Get("health_status")

	devices := make([]device.Device, 0)
	for _, d := range s.registry.ListDevices() {
		if class != "" && d.Class != capability.Class(class) {
			continue
		}
		if prof != "" && d.Profile != profile.Name(prof) {
			continue
		}
		if capStr != "" && !d.HasCapability(capability.Capability(capStr)) {
			continue
		}
		if health != "" && d.HealthStatus != device.HealthStatus(health) {
			continue
		}
		devices = append(devices, d)
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device with its session snapshot.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	resp := DeviceResponse{Device: d}
	if s.sessions != nil {
		if info, ok := s.sessions.Session(id); ok {
			resp.Session = &info
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetDeviceState returns the last value written to each capability,
// as held by the state cache.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	if s.state == nil {
		writeUnavailable(w, "state cache not configured")
		return
	}

	values, err := s.state.Get(r.Context(), id)
	if err != nil {
		s.logger.Warn("failed to read device state", "device_id", id, "error", err)
		writeUnavailable(w, "state cache unavailable")
		return
	}
	if values == nil {
		values = map[string]statecache.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":    id,
		"capabilities": values,
	})
}

// handleDeviceStats returns registry counts by class, profile and health.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}
