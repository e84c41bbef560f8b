package registry

import (
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// UpdateResult reports the outcome of a preference update. Warnings flag
// consistency issues that were accepted anyway (e.g. breaking changes).
type UpdateResult struct {
	Warnings []string `json:"warnings,omitempty"`
}

// UpdatePreferences replaces a user's sync preferences after re-validating
// consistency. Disabling encryption while sensitive categories still sync
// is accepted but flagged as a breaking change.
func (r *Registry) UpdatePreferences(userID string, prefs *models.SyncPreferences) (*UpdateResult, error) {
	current, err := r.store.GetPreferences(userID)
	if err != nil {
		return nil, err
	}

	res := &UpdateResult{}
	if err := validatePreferences(prefs); err != nil {
		return nil, err
	}

	if current.Strategy.EncryptionEnabled && !prefs.Strategy.EncryptionEnabled {
		sensitive := models.SensitiveCategories()
		for _, cat := range prefs.Privacy.SyncedCategories {
			if sensitive[cat] {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("breaking change: encryption disabled while sensitive category %q still syncs", cat))
			}
		}
	}

	prefs.UserID = userID
	prefs.UpdatedAt = time.Now().UTC()
	if err := r.store.WithUserLock(userID, func() error {
		return r.store.PutPreferences(prefs)
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// GetPreferences returns a user's current preferences.
func (r *Registry) GetPreferences(userID string) (*models.SyncPreferences, error) {
	return r.store.GetPreferences(userID)
}

func validatePreferences(p *models.SyncPreferences) error {
	if !models.ValidStrategy(string(p.Conflicts.Default)) {
		return fmt.Errorf("unknown default conflict strategy %q", p.Conflicts.Default)
	}
	for cat, s := range p.Conflicts.PerCategory {
		if !models.ValidCategory(string(cat)) {
			return fmt.Errorf("unknown category %q in conflict strategies", cat)
		}
		if !models.ValidStrategy(string(s)) {
			return fmt.Errorf("unknown conflict strategy %q for category %q", s, cat)
		}
	}
	for _, cat := range p.Privacy.SyncedCategories {
		if !models.ValidCategory(string(cat)) {
			return fmt.Errorf("unknown synced category %q", cat)
		}
	}
	if p.Backup.MaxCount < 1 {
		return fmt.Errorf("backup max count must be at least 1: %w", models.ErrRetentionViolation)
	}
	if p.Backup.Retention < p.Backup.Interval {
		return fmt.Errorf("backup retention %s shorter than interval %s: %w",
			p.Backup.Retention, p.Backup.Interval, models.ErrRetentionViolation)
	}
	if p.Conflicts.SkewTolerance < 0 {
		return fmt.Errorf("skew tolerance must not be negative")
	}
	return nil
}

// Devices returns a user's registered devices.
func (r *Registry) Devices(userID string) ([]models.DeviceRecord, error) {
	return r.store.ListDevices(userID)
}

// SetOnline updates a device's connectivity flag.
func (r *Registry) SetOnline(deviceID string, online bool) error {
	return r.store.SetDeviceOnline(deviceID, online)
}
