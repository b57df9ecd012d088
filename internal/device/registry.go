package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry wraps a Repository with an in-memory cache.
//
// The cache is filled by RefreshCache at startup and kept in sync by every
// mutating call. Read-modify-write operations (capability grants, upserts)
// are serialised by writeMu so concurrent sessions cannot lose updates.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device
	cacheMu sync.RWMutex
	writeMu sync.Mutex
	logger  Logger
}

// NewRegistry creates a registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		r.cache[devices[i].ID] = devices[i].DeepCopy()
	}
	r.cacheMu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice returns a copy of the device, reading through to the
// repository on a cache miss.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	if d, ok := r.cached(id); ok {
		return d, nil
	}

	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(d)
	return d, nil
}

// ListDevices returns copies of all cached devices ordered by name then ID.
func (r *Registry) ListDevices() []Device {
	r.cacheMu.RLock()
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		devices = append(devices, *d.DeepCopy())
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// CreateDevice validates and persists a new device, generating an ID when
// none is set.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.create(ctx, d)
}

func (r *Registry) create(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	applyDefaults(d)
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}
	r.store(d)
	r.logger.Info("device created", "id", d.ID, "name", d.Name, "profile", d.Profile)
	return nil
}

// Upsert registers the device from an interview. An existing record keeps
// its granted capabilities (merged with d's), settings and creation time;
// identity, profile, descriptor and topology fields are replaced.
// created reports whether a new record was inserted.
func (r *Registry) Upsert(ctx context.Context, d *Device) (created bool, err error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	existing, err := r.GetDevice(ctx, d.ID)
	if err != nil {
		if !errors.Is(err, ErrDeviceNotFound) {
			return false, err
		}
		return true, r.create(ctx, d)
	}

	merged := existing.Capabilities
	for _, c := range d.Capabilities {
		if !slices.Contains(merged, c) {
			merged = append(merged, c)
		}
	}
	d.Capabilities = merged
	d.Settings = existing.Settings
	d.CreatedAt = existing.CreatedAt
	applyDefaults(d)

	if err := ValidateDevice(d); err != nil {
		return false, err
	}
	if err := r.repo.Update(ctx, d); err != nil {
		return false, err
	}
	r.store(d)
	r.logger.Info("device updated", "id", d.ID, "profile", d.Profile)
	return false, nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// AddCapability grants c to the device and persists the set. Granting a
// capability the device already has is a no-op. Capabilities are never
// removed by the registry.
func (r *Registry) AddCapability(ctx context.Context, id string, c capability.Capability) error {
	if err := capability.Validate(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCapability, err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	d, err := r.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	if d.HasCapability(c) {
		return nil
	}

	caps := append(d.Capabilities, c)
	if err := r.repo.UpdateCapabilities(ctx, id, caps); err != nil {
		return err
	}
	d.Capabilities = caps
	d.UpdatedAt = time.Now().UTC()
	r.store(d)

	r.logger.Debug("capability granted", "id", id, "capability", c)
	return nil
}

// SetSettings validates and persists the device settings.
func (r *Registry) SetSettings(ctx context.Context, id string, s Settings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.repo.UpdateSettings(ctx, id, s); err != nil {
		return err
	}
	r.update(id, func(d *Device) { d.Settings = s })
	return nil
}

// SetHealth records the health status and last-seen time.
func (r *Registry) SetHealth(ctx context.Context, id string, status HealthStatus) error {
	now := time.Now().UTC()
	if err := r.repo.UpdateHealth(ctx, id, status, now); err != nil {
		return err
	}
	r.update(id, func(d *Device) {
		d.HealthStatus = status
		d.LastSeen = &now
	})
	return nil
}

// Stats summarises the cached devices.
type Stats struct {
	TotalDevices   int                      `json:"total_devices"`
	ByClass        map[capability.Class]int `json:"by_class"`
	ByProfile      map[profile.Name]int     `json:"by_profile"`
	ByHealthStatus map[HealthStatus]int     `json:"by_health_status"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices:   len(r.cache),
		ByClass:        make(map[capability.Class]int),
		ByProfile:      make(map[profile.Name]int),
		ByHealthStatus: make(map[HealthStatus]int),
	}
	for _, d := range r.cache {
		stats.ByClass[d.Class]++
		stats.ByProfile[d.Profile]++
		stats.ByHealthStatus[d.HealthStatus]++
	}
	return stats
}

// ─── Cache helpers ──────────────────────────────────────────────────

func (r *Registry) cached(id string) (*Device, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	d, ok := r.cache[id]
	if !ok {
		return nil, false
	}
	return d.DeepCopy(), true
}

func (r *Registry) store(d *Device) {
	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()
}

// update replaces the cached entry with a modified copy.
func (r *Registry) update(id string, fn func(*Device)) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if cached, ok := r.cache[id]; ok {
		d := cached.DeepCopy()
		fn(d)
		d.UpdatedAt = time.Now().UTC()
		r.cache[id] = d
	}
}

func applyDefaults(d *Device) {
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Class == "" {
		d.Class = capability.ClassOther
	}
	if d.GangCount < 1 {
		d.GangCount = 1
	}
	if d.PowerSource == "" {
		d.PowerSource = identity.PowerUnknown
	}
	if d.HealthStatus == "" {
		d.HealthStatus = HealthUnknown
	}
}
