package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// Repository defines device persistence operations.
type Repository interface {
	// GetByID returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	List(ctx context.Context) ([]Device, error)

	// Create returns ErrDeviceExists on a duplicate ID or IEEE address.
	Create(ctx context.Context, device *Device) error

	// Update rewrites every column except created_at.
	Update(ctx context.Context, device *Device) error

	Delete(ctx context.Context, id string) error

	// UpdateCapabilities replaces only the capability set.
	UpdateCapabilities(ctx context.Context, id string, caps []capability.Capability) error

	// UpdateSettings replaces only the settings document.
	UpdateSettings(ctx context.Context, id string, settings Settings) error

	UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, ieee_address, model, manufacturer, class, profile,
	canonical_type, sub_type, power_source, capabilities, gang_count, endpoints,
	settings, health_status, last_seen, created_at, updated_at`

// GetByID retrieves a device by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+deviceColumns+" FROM devices ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device, stamping CreatedAt and UpdatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	docs, err := marshalDocuments(d)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, nullableString(d.IEEEAddress), d.Model, d.Manufacturer,
		string(d.Class), string(d.Profile), d.CanonicalType, d.SubType,
		string(d.PowerSource), docs.capabilities, d.GangCount, docs.endpoints,
		docs.settings, string(d.HealthStatus), nullableTime(d.LastSeen),
		d.CreatedAt.Format(time.RFC3339Nano), d.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update rewrites an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	docs, err := marshalDocuments(d)
	if err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, ieee_address = ?, model = ?, manufacturer = ?, class = ?,
			profile = ?, canonical_type = ?, sub_type = ?, power_source = ?,
			capabilities = ?, gang_count = ?, endpoints = ?, settings = ?,
			health_status = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, nullableString(d.IEEEAddress), d.Model, d.Manufacturer, string(d.Class),
		string(d.Profile), d.CanonicalType, d.SubType, string(d.PowerSource),
		docs.capabilities, d.GangCount, docs.endpoints, docs.settings,
		string(d.HealthStatus), nullableTime(d.LastSeen), d.UpdatedAt.Format(time.RFC3339Nano),
		d.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}
	return requireRow(result)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRow(result)
}

// UpdateCapabilities replaces the stored capability set.
func (r *SQLiteRepository) UpdateCapabilities(ctx context.Context, id string, caps []capability.Capability) error {
	capsJSON, err := json.Marshal(nonNil(caps))
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}
	return r.touch(ctx, "capabilities = ?", id, string(capsJSON))
}

// UpdateSettings replaces the stored settings document.
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, id string, settings Settings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}
	return r.touch(ctx, "settings = ?", id, string(settingsJSON))
}

// UpdateHealth updates the health status and last seen timestamp.
func (r *SQLiteRepository) UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	return r.touch(ctx, "health_status = ?, last_seen = ?", id,
		string(status), lastSeen.UTC().Format(time.RFC3339Nano))
}

// touch runs "UPDATE devices SET <set>, updated_at = now WHERE id = ?".
func (r *SQLiteRepository) touch(ctx context.Context, set, id string, args ...any) error {
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)
	result, err := r.db.ExecContext(ctx, "UPDATE devices SET "+set+", updated_at = ? WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return requireRow(result)
}

// ─── Row helpers ────────────────────────────────────────────────────

type documents struct {
	capabilities string
	endpoints    string
	settings     string
}

func marshalDocuments(d *Device) (documents, error) {
	var docs documents
	caps, err := json.Marshal(nonNil(d.Capabilities))
	if err != nil {
		return docs, fmt.Errorf("marshalling capabilities: %w", err)
	}
	eps, err := json.Marshal(d.Endpoints)
	if err != nil {
		return docs, fmt.Errorf("marshalling endpoints: %w", err)
	}
	if string(eps) == "null" {
		eps = []byte("[]")
	}
	settings, err := json.Marshal(d.Settings)
	if err != nil {
		return docs, fmt.Errorf("marshalling settings: %w", err)
	}
	return documents{string(caps), string(eps), string(settings)}, nil
}

// rowScanner is implemented by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var ieee, lastSeen sql.NullString
	var class, prof, power, health string
	var capsJSON, endpointsJSON, settingsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID, &d.Name, &ieee, &d.Model, &d.Manufacturer, &class, &prof,
		&d.CanonicalType, &d.SubType, &power, &capsJSON, &d.GangCount, &endpointsJSON,
		&settingsJSON, &health, &lastSeen, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.IEEEAddress = ieee.String
	d.Class = capability.Class(class)
	d.Profile = profile.Name(prof)
	d.PowerSource = identity.PowerSource(power)
	d.HealthStatus = HealthStatus(health)

	if err := json.Unmarshal([]byte(capsJSON), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(endpointsJSON), &d.Endpoints); err != nil {
		return nil, fmt.Errorf("unmarshalling endpoints: %w", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &d.Settings); err != nil {
		return nil, fmt.Errorf("unmarshalling settings: %w", err)
	}
	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastSeen.String); err == nil {
			d.LastSeen = &t
		}
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // written by this package
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // written by this package

	return &d, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nonNil(caps []capability.Capability) []capability.Capability {
	if caps == nil {
		return []capability.Capability{}
	}
	return caps
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
