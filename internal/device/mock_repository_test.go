package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device
	err     error // returned by every call when set
	calls   map[string]int
}

func newMockRepository() *mockRepository {
	return &mockRepository{devices: make(map[string]*Device), calls: make(map[string]int)}
}

func (m *mockRepository) record(name string) error {
	m.calls[name]++
	return m.err
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetByID"); err != nil {
		return nil, err
	}
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("List"); err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Create"); err != nil {
		return err
	}
	if _, ok := m.devices[d.ID]; ok {
		return ErrDeviceExists
	}
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	m.devices[d.ID] = d.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Update"); err != nil {
		return err
	}
	if _, ok := m.devices[d.ID]; !ok {
		return ErrDeviceNotFound
	}
	m.devices[d.ID] = d.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Delete"); err != nil {
		return err
	}
	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *mockRepository) modify(name, id string, fn func(*Device)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(name); err != nil {
		return err
	}
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	fn(d)
	return nil
}

func (m *mockRepository) UpdateCapabilities(_ context.Context, id string, caps []capability.Capability) error {
	return m.modify("UpdateCapabilities", id, func(d *Device) {
		d.Capabilities = append([]capability.Capability(nil), caps...)
	})
}

func (m *mockRepository) UpdateSettings(_ context.Context, id string, s Settings) error {
	return m.modify("UpdateSettings", id, func(d *Device) { d.Settings = s })
}

func (m *mockRepository) UpdateHealth(_ context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	return m.modify("UpdateHealth", id, func(d *Device) {
		d.HealthStatus = status
		d.LastSeen = &lastSeen
	})
}

func (m *mockRepository) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}
