package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// GetPreferences returns a user's sync preferences, or
// ErrPreferencesNotFound if none have been created.
func (s *Store) GetPreferences(userID string) (*models.SyncPreferences, error) {
	var data string
	var updatedAt time.Time
	err := s.conn.QueryRow(
		`SELECT data, updated_at FROM preferences WHERE user_id = ?`, userID,
	).Scan(&data, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	var prefs models.SyncPreferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	prefs.UserID = userID
	prefs.UpdatedAt = updatedAt
	return &prefs, nil
}

// PutPreferences inserts or replaces a user's sync preferences.
func (s *Store) PutPreferences(prefs *models.SyncPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = s.conn.Exec(
		`INSERT INTO preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		prefs.UserID, string(data), prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}
