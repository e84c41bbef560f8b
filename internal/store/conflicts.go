package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/brewlab/brewsync/internal/models"
)

// InsertConflict records a pending conflict awaiting resolution.
func (s *Store) InsertConflict(c *models.Conflict) error {
	source, err := json.Marshal(c.Source)
	if err != nil {
		return fmt.Errorf("marshal source side: %w", err)
	}
	target, err := json.Marshal(c.Target)
	if err != nil {
		return fmt.Errorf("marshal target side: %w", err)
	}
	var resolution any
	if c.Resolution != nil {
		data, err := json.Marshal(c.Resolution)
		if err != nil {
			return fmt.Errorf("marshal resolution: %w", err)
		}
		resolution = string(data)
	}
	_, err = s.conn.Exec(
		`INSERT INTO conflicts (id, user_id, session_id, category, source, target, resolution, auto_resolved, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ConflictID, c.UserID, c.SessionID, string(c.Category),
		string(source), string(target), resolution, boolToInt(c.AutoResolved), c.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conflict: %w", err)
	}
	return nil
}

// GetConflict returns a pending conflict by id, or nil if unknown.
func (s *Store) GetConflict(conflictID string) (*models.Conflict, error) {
	row := s.conn.QueryRow(
		`SELECT id, user_id, session_id, category, source, target, resolution, auto_resolved, detected_at
		 FROM conflicts WHERE id = ?`, conflictID)
	c, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return c, nil
}

// PendingConflicts returns a user's unresolved conflicts, oldest first.
func (s *Store) PendingConflicts(userID string) ([]models.Conflict, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, session_id, category, source, target, resolution, auto_resolved, detected_at
		 FROM conflicts WHERE user_id = ? AND resolution IS NULL ORDER BY detected_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, *c)
	}
	return conflicts, rows.Err()
}

// ResolveConflict records a resolution decision for a pending conflict.
func (s *Store) ResolveConflict(conflictID string, res *models.ConflictResolution) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	r, err := s.conn.Exec(
		`UPDATE conflicts SET resolution = ? WHERE id = ? AND resolution IS NULL`,
		string(data), conflictID)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("conflict %s: %w", conflictID, models.ErrConflictUnresolved)
	}
	return nil
}

// DeleteConflict removes a conflict record after its resolution is applied.
func (s *Store) DeleteConflict(conflictID string) error {
	_, err := s.conn.Exec(`DELETE FROM conflicts WHERE id = ?`, conflictID)
	if err != nil {
		return fmt.Errorf("delete conflict: %w", err)
	}
	return nil
}

func scanConflict(row rowScanner) (*models.Conflict, error) {
	var c models.Conflict
	var cat, source, target string
	var resolution sql.NullString
	var auto int
	if err := row.Scan(&c.ConflictID, &c.UserID, &c.SessionID, &cat,
		&source, &target, &resolution, &auto, &c.DetectedAt); err != nil {
		return nil, err
	}
	c.Category = models.Category(cat)
	c.AutoResolved = auto != 0
	if err := json.Unmarshal([]byte(source), &c.Source); err != nil {
		return nil, fmt.Errorf("parse source side: %w", err)
	}
	if err := json.Unmarshal([]byte(target), &c.Target); err != nil {
		return nil, fmt.Errorf("parse target side: %w", err)
	}
	if resolution.Valid {
		var res models.ConflictResolution
		if err := json.Unmarshal([]byte(resolution.String), &res); err != nil {
			return nil, fmt.Errorf("parse resolution: %w", err)
		}
		c.Resolution = &res
	}
	return &c, nil
}
