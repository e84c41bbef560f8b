package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brewlab/brewsync/internal/models"
)

// RestoreOptions narrows a restore run.
type RestoreOptions struct {
	// PreserveLocal keeps a category's current value when one exists,
	// restoring only categories that are empty.
	PreserveLocal bool
	// Categories restricts the restore to the listed categories. Empty
	// means everything the backup holds.
	Categories []models.Category
}

// RestoreResult reports which categories a restore touched.
type RestoreResult struct {
	BackupID string            `json:"backup_id"`
	Restored []models.Category `json:"restored"`
	Skipped  []models.Category `json:"skipped,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Outcome  models.Outcome    `json:"outcome"`
}

// RestoreBackup reinstates a backup's categories into the external stores.
// The blob checksum is verified before anything is applied; on mismatch no
// data changes and the result carries an integrity warning.
func (m *Manager) RestoreBackup(ctx context.Context, userID, backupID string, opts RestoreOptions) (*RestoreResult, error) {
	b, err := m.store.GetBackup(backupID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, models.ErrBackupNotFound
	}

	res := &RestoreResult{BackupID: backupID}
	env, err := m.loadEnvelope(ctx, b)
	if err != nil {
		if errors.Is(err, models.ErrIntegrityCheckFailed) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("backup %s failed integrity verification, nothing restored", backupID))
			res.Outcome = models.OutcomeOf(false, nil, res.Warnings)
			slog.Warn("restore aborted, checksum mismatch", "user", userID, "backup", backupID)
			return res, nil
		}
		return nil, err
	}

	want := make(map[models.Category]bool, len(opts.Categories))
	for _, cat := range opts.Categories {
		want[cat] = true
	}

	err = m.store.WithUserLock(userID, func() error {
		for cat, snap := range env.Categories {
			if len(want) > 0 && !want[cat] {
				continue
			}
			cs, ok := m.stores[cat]
			if !ok {
				res.Skipped = append(res.Skipped, cat)
				continue
			}
			if opts.PreserveLocal {
				current, err := cs.Get(ctx, userID)
				if err == nil && len(current) > 0 {
					res.Skipped = append(res.Skipped, cat)
					continue
				}
			}
			if err := cs.Set(ctx, userID, snap.Payload); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("restore %s: %v", cat, err))
				continue
			}
			res.Restored = append(res.Restored, cat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Outcome = models.OutcomeOf(len(res.Restored) == 0 && len(res.Warnings) > 0, nil, res.Warnings)
	slog.Info("restore completed", "user", userID, "backup", backupID,
		"restored", len(res.Restored), "skipped", len(res.Skipped))
	return res, nil
}
