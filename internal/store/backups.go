package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// InsertBackup persists backup metadata. The payload itself lives in the
// blob store under BlobKey.
func (s *Store) InsertBackup(b *models.CloudBackup) error {
	cats, err := json.Marshal(b.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	_, err = s.conn.Exec(
		`INSERT INTO backups (id, user_id, type, created_at, expires_at, size_bytes, compressed, encrypted, checksum, verified, verified_at, blob_key, categories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BackupID, b.UserID, string(b.Type), b.CreatedAt, b.ExpiresAt, b.SizeBytes,
		boolToInt(b.Compressed), boolToInt(b.Encrypted), b.Checksum,
		boolToInt(b.Verified), b.VerifiedAt, b.BlobKey, string(cats),
	)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

// GetBackup returns backup metadata by id, or ErrBackupNotFound.
func (s *Store) GetBackup(backupID string) (*models.CloudBackup, error) {
	row := s.conn.QueryRow(
		`SELECT id, user_id, type, created_at, expires_at, size_bytes, compressed, encrypted, checksum, verified, verified_at, blob_key, categories
		 FROM backups WHERE id = ?`, backupID)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrBackupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

// ListBackups returns a user's backups, newest first.
func (s *Store) ListBackups(userID string) ([]models.CloudBackup, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, type, created_at, expires_at, size_bytes, compressed, encrypted, checksum, verified, verified_at, blob_key, categories
		 FROM backups WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []models.CloudBackup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// MarkBackupVerified updates the integrity metadata, the only mutation a
// persisted backup permits.
func (s *Store) MarkBackupVerified(backupID string, ok bool, at time.Time) error {
	res, err := s.conn.Exec(
		`UPDATE backups SET verified = ?, verified_at = ? WHERE id = ?`,
		boolToInt(ok), at, backupID)
	if err != nil {
		return fmt.Errorf("mark backup verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrBackupNotFound
	}
	return nil
}

// DeleteBackup removes backup metadata. Callers delete the blob first.
func (s *Store) DeleteBackup(backupID string) error {
	_, err := s.conn.Exec(`DELETE FROM backups WHERE id = ?`, backupID)
	if err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

func scanBackup(row rowScanner) (*models.CloudBackup, error) {
	var b models.CloudBackup
	var typ, cats string
	var compressed, encrypted, verified int
	if err := row.Scan(&b.BackupID, &b.UserID, &typ, &b.CreatedAt, &b.ExpiresAt,
		&b.SizeBytes, &compressed, &encrypted, &b.Checksum, &verified,
		&b.VerifiedAt, &b.BlobKey, &cats); err != nil {
		return nil, err
	}
	b.Type = models.BackupType(typ)
	b.Compressed = compressed != 0
	b.Encrypted = encrypted != 0
	b.Verified = verified != 0
	if err := json.Unmarshal([]byte(cats), &b.Categories); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	return &b, nil
}
