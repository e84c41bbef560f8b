package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// DeviceValue is one device's current value for a category.
type DeviceValue struct {
	DeviceID  string
	Category  models.Category
	Payload   json.RawMessage
	Version   int64
	Checksum  string
	UpdatedAt time.Time
}

// GetDeviceValue returns a device's current value for a category, or nil
// if the device holds no data for it.
func (s *Store) GetDeviceValue(deviceID string, cat models.Category) (*DeviceValue, error) {
	var v DeviceValue
	var payload string
	err := s.conn.QueryRow(
		`SELECT device_id, category, payload, version, checksum, updated_at
		 FROM device_data WHERE device_id = ? AND category = ?`, deviceID, string(cat),
	).Scan(&v.DeviceID, &v.Category, &payload, &v.Version, &v.Checksum, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device value: %w", err)
	}
	v.Payload = json.RawMessage(payload)
	return &v, nil
}

// PutDeviceValue writes a device's current value for a category,
// replacing any previous value.
func (s *Store) PutDeviceValue(v *DeviceValue) error {
	_, err := s.conn.Exec(
		`INSERT INTO device_data (device_id, category, payload, version, checksum, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id, category) DO UPDATE SET
		   payload = excluded.payload, version = excluded.version,
		   checksum = excluded.checksum, updated_at = excluded.updated_at`,
		v.DeviceID, string(v.Category), string(v.Payload), v.Version, v.Checksum, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put device value: %w", err)
	}
	return nil
}

// DeleteDeviceValue removes a device's value for a category. Missing rows
// are not an error; deletes are idempotent in the offline drain path.
func (s *Store) DeleteDeviceValue(deviceID string, cat models.Category) error {
	_, err := s.conn.Exec(
		`DELETE FROM device_data WHERE device_id = ? AND category = ?`,
		deviceID, string(cat))
	if err != nil {
		return fmt.Errorf("delete device value: %w", err)
	}
	return nil
}
