package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/notify"
	"github.com/brewlab/brewsync/internal/store"
)

// Manager produces full, incremental and differential backups, verifies
// integrity, enforces retention and restores from a chosen backup.
type Manager struct {
	store    *store.Store
	stores   collector.Stores
	backend  Backend
	codec    Codec
	notifier notify.Notifier

	now func() time.Time
}

// NewManager creates a backup manager.
func NewManager(st *store.Store, stores collector.Stores, backend Backend, codec Codec, notifier notify.Notifier) *Manager {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Manager{
		store:    st,
		stores:   stores,
		backend:  backend,
		codec:    codec,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// snapshot is one category's captured state inside a backup payload.
type snapshot struct {
	Payload  json.RawMessage `json:"payload"`
	Checksum string          `json:"checksum"`
}

// envelope is the serialized backup payload before compression/encryption.
type envelope struct {
	UserID     string                       `json:"user_id"`
	Type       models.BackupType            `json:"type"`
	CreatedAt  time.Time                    `json:"created_at"`
	BaseBackup string                       `json:"base_backup,omitempty"`
	Categories map[models.Category]snapshot `json:"categories"`
}

// CreateResult reports a completed backup run.
type CreateResult struct {
	BackupID  string         `json:"backup_id"`
	SizeBytes int64          `json:"size_bytes"`
	Encrypted bool           `json:"encrypted"`
	Warnings  []string       `json:"warnings,omitempty"`
	Outcome   models.Outcome `json:"outcome"`
}

// CreateBackup collects all in-scope user data, optionally compresses and
// encrypts it, persists the blob and enforces retention. On failure the
// notification collaborator receives a backup-failure alert.
func (m *Manager) CreateBackup(ctx context.Context, userID string, typ models.BackupType) (*CreateResult, error) {
	res, err := m.createBackup(ctx, userID, typ)
	if err != nil {
		m.notifier.Notify(userID, notify.KindBackupFailure, map[string]string{"error": err.Error()})
	}
	return res, err
}

func (m *Manager) createBackup(ctx context.Context, userID string, typ models.BackupType) (*CreateResult, error) {
	prefs, err := m.store.GetPreferences(userID)
	if err != nil {
		return nil, err
	}

	var result *CreateResult
	err = m.store.WithUserLock(userID, func() error {
		var err error
		result, err = m.createLocked(ctx, userID, typ, prefs)
		return err
	})
	return result, err
}

func (m *Manager) createLocked(ctx context.Context, userID string, typ models.BackupType, prefs *models.SyncPreferences) (*CreateResult, error) {
	res := &CreateResult{}
	now := m.now()

	env := envelope{
		UserID:     userID,
		Type:       typ,
		CreatedAt:  now,
		Categories: make(map[models.Category]snapshot),
	}

	base, err := m.baseline(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	if base == nil && typ != models.BackupFull {
		// Nothing to diff against yet.
		res.Warnings = append(res.Warnings, fmt.Sprintf("no prior backup for %s, capturing full snapshot", typ))
	} else if base != nil {
		env.BaseBackup = base.id
	}

	sensitive := false
	for _, cat := range prefs.Privacy.SyncedCategories {
		cs, ok := m.stores[cat]
		if !ok {
			continue
		}
		payload, err := cs.Get(ctx, userID)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("collect %s: %v", cat, err))
			continue
		}
		if len(payload) == 0 {
			continue
		}
		sum := collector.Checksum(payload)
		if base != nil && base.checksums[cat] == sum {
			continue // unchanged since baseline
		}
		env.Categories[cat] = snapshot{Payload: payload, Checksum: sum}
		if models.SensitiveCategories()[cat] {
			sensitive = true
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal backup payload: %w", err)
	}

	compressed := false
	if prefs.Strategy.CompressionEnabled && int64(len(data)) > prefs.Strategy.CompressionThreshold {
		out, ratio, err := m.codec.Compress(data)
		if err != nil {
			return nil, err
		}
		data = out
		compressed = true
		slog.Debug("compressed backup payload", "user", userID, "ratio", fmt.Sprintf("%.2f", ratio))
	}

	// Sensitive categories are always encrypted, whatever the preference.
	encrypted := prefs.Strategy.EncryptionEnabled || sensitive
	if encrypted {
		out, err := m.codec.Encrypt(data, userID)
		if err != nil {
			return nil, err
		}
		data = out
	}

	backupID, err := store.GenerateID("bak_")
	if err != nil {
		return nil, err
	}
	blobKey := userID + "/" + backupID

	if err := m.backend.Put(ctx, blobKey, data); err != nil {
		return nil, fmt.Errorf("persist backup blob: %w", err)
	}

	cats := make([]models.Category, 0, len(env.Categories))
	for cat := range env.Categories {
		cats = append(cats, cat)
	}
	b := &models.CloudBackup{
		BackupID:   backupID,
		UserID:     userID,
		Type:       typ,
		CreatedAt:  now,
		ExpiresAt:  now.Add(prefs.Backup.Retention),
		SizeBytes:  int64(len(data)),
		Compressed: compressed,
		Encrypted:  encrypted,
		Checksum:   collector.Checksum(data),
		BlobKey:    blobKey,
		Categories: cats,
	}
	if err := m.store.InsertBackup(b); err != nil {
		return nil, err
	}

	if warns, err := m.enforceRetention(ctx, userID, prefs.Backup); err != nil {
		return nil, err
	} else {
		res.Warnings = append(res.Warnings, warns...)
	}

	res.BackupID = backupID
	res.SizeBytes = b.SizeBytes
	res.Encrypted = encrypted
	res.Outcome = models.OutcomeOf(false, nil, res.Warnings)
	slog.Info("backup created", "user", userID, "backup", backupID, "type", typ,
		"bytes", b.SizeBytes, "compressed", compressed, "encrypted", encrypted)
	return res, nil
}

type baselineInfo struct {
	id        string
	checksums map[models.Category]string
}

// baseline returns the backup an incremental or differential run diffs
// against: the most recent backup of any type for incremental, the most
// recent full backup for differential, nil for full.
func (m *Manager) baseline(ctx context.Context, userID string, typ models.BackupType) (*baselineInfo, error) {
	if typ == models.BackupFull {
		return nil, nil
	}
	backups, err := m.store.ListBackups(userID)
	if err != nil {
		return nil, err
	}
	for _, b := range backups {
		if typ == models.BackupDifferential && b.Type != models.BackupFull {
			continue
		}
		sums, err := m.blobChecksums(ctx, &b)
		if err != nil {
			// Unreadable baseline: fall back to a full capture.
			slog.Warn("baseline backup unreadable, capturing full snapshot", "backup", b.BackupID, "err", err)
			return nil, nil
		}
		return &baselineInfo{id: b.BackupID, checksums: sums}, nil
	}
	return nil, nil
}

// blobChecksums loads a backup blob and returns its per-category checksums.
func (m *Manager) blobChecksums(ctx context.Context, b *models.CloudBackup) (map[models.Category]string, error) {
	env, err := m.loadEnvelope(ctx, b)
	if err != nil {
		return nil, err
	}
	sums := make(map[models.Category]string, len(env.Categories))
	for cat, snap := range env.Categories {
		sums[cat] = snap.Checksum
	}
	return sums, nil
}

func (m *Manager) loadEnvelope(ctx context.Context, b *models.CloudBackup) (*envelope, error) {
	data, err := m.backend.Get(ctx, b.BlobKey)
	if err != nil {
		return nil, err
	}
	if collector.Checksum(data) != b.Checksum {
		return nil, models.ErrIntegrityCheckFailed
	}
	if b.Encrypted {
		if data, err = m.codec.Decrypt(data, b.UserID); err != nil {
			return nil, err
		}
	}
	if b.Compressed {
		if data, err = m.codec.Decompress(data); err != nil {
			return nil, err
		}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse backup payload: %w", err)
	}
	return &env, nil
}

// enforceRetention drops expired backups, then oldest-first down to the
// configured cap. Runs after every create.
func (m *Manager) enforceRetention(ctx context.Context, userID string, policy models.BackupPolicy) ([]string, error) {
	backups, err := m.store.ListBackups(userID)
	if err != nil {
		return nil, err
	}
	now := m.now()

	var warnings []string
	var kept []models.CloudBackup
	for _, b := range backups {
		if b.Expired(now) {
			if err := m.deleteBackup(ctx, &b); err != nil {
				warnings = append(warnings, fmt.Sprintf("drop expired backup %s: %v", b.BackupID, err))
				continue
			}
			slog.Info("dropped expired backup", "user", userID, "backup", b.BackupID)
			continue
		}
		kept = append(kept, b)
	}

	// kept is newest-first; trim from the tail.
	maxCount := policy.MaxCount
	if maxCount < 1 {
		maxCount = 10
	}
	for len(kept) > maxCount {
		oldest := kept[len(kept)-1]
		if err := m.deleteBackup(ctx, &oldest); err != nil {
			warnings = append(warnings, fmt.Sprintf("drop backup %s over cap: %v", oldest.BackupID, err))
			break
		}
		slog.Info("dropped backup over retention cap", "user", userID, "backup", oldest.BackupID)
		kept = kept[:len(kept)-1]
	}
	return warnings, nil
}

func (m *Manager) deleteBackup(ctx context.Context, b *models.CloudBackup) error {
	if err := m.backend.Delete(ctx, b.BlobKey); err != nil {
		return err
	}
	return m.store.DeleteBackup(b.BackupID)
}

// List returns a user's backups, newest first.
func (m *Manager) List(userID string) ([]models.CloudBackup, error) {
	return m.store.ListBackups(userID)
}

// VerifyBackup recomputes the stored blob's checksum and records the
// result. This is the only mutation a persisted backup permits.
func (m *Manager) VerifyBackup(ctx context.Context, backupID string) (bool, error) {
	b, err := m.store.GetBackup(backupID)
	if err != nil {
		return false, err
	}
	data, err := m.backend.Get(ctx, b.BlobKey)
	if err != nil {
		return false, err
	}
	ok := collector.Checksum(data) == b.Checksum
	if err := m.store.MarkBackupVerified(backupID, ok, m.now()); err != nil {
		return ok, err
	}
	return ok, nil
}
