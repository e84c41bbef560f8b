package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// InsertDevice persists a newly registered device.
func (s *Store) InsertDevice(d *models.DeviceRecord) error {
	caps, err := json.Marshal(d.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	_, err = s.conn.Exec(
		`INSERT INTO devices (id, user_id, name, type, capabilities, last_sync_at, is_online, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DeviceID, d.UserID, d.Name, string(d.Type), string(caps),
		d.LastSyncAt, boolToInt(d.IsOnline), d.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// GetDevice returns the device with the given id, or ErrDeviceNotFound.
func (s *Store) GetDevice(deviceID string) (*models.DeviceRecord, error) {
	row := s.conn.QueryRow(
		`SELECT id, user_id, name, type, capabilities, last_sync_at, is_online, registered_at
		 FROM devices WHERE id = ?`, deviceID)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", deviceID, err)
	}
	return d, nil
}

// ListDevices returns all devices registered for a user, oldest first.
func (s *Store) ListDevices(userID string) ([]models.DeviceRecord, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, name, type, capabilities, last_sync_at, is_online, registered_at
		 FROM devices WHERE user_id = ? ORDER BY registered_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []models.DeviceRecord
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// TouchDeviceSync records a successful sync for a device.
func (s *Store) TouchDeviceSync(deviceID string, at time.Time) error {
	res, err := s.conn.Exec(`UPDATE devices SET last_sync_at = ? WHERE id = ?`, at, deviceID)
	if err != nil {
		return fmt.Errorf("touch device sync: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDeviceNotFound
	}
	return nil
}

// SetDeviceOnline updates a device's connectivity flag.
func (s *Store) SetDeviceOnline(deviceID string, online bool) error {
	res, err := s.conn.Exec(`UPDATE devices SET is_online = ? WHERE id = ?`, boolToInt(online), deviceID)
	if err != nil {
		return fmt.Errorf("set device online: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDeviceNotFound
	}
	return nil
}

// RemoveDevice deletes a device record. Removal is an explicit user action;
// nothing in the engine calls this on its own.
func (s *Store) RemoveDevice(deviceID string) error {
	res, err := s.conn.Exec(`DELETE FROM devices WHERE id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("remove device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDeviceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.DeviceRecord, error) {
	var d models.DeviceRecord
	var typ, caps string
	var online int
	if err := row.Scan(&d.DeviceID, &d.UserID, &d.Name, &typ, &caps,
		&d.LastSyncAt, &online, &d.RegisteredAt); err != nil {
		return nil, err
	}
	d.Type = models.DeviceType(typ)
	d.IsOnline = online != 0
	if err := json.Unmarshal([]byte(caps), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("parse capabilities: %w", err)
	}
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
