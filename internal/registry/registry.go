// Package registry tracks per-user device records and validates device
// capability before registration.
package registry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/store"
)

// Storage floors for registration. Below the hard floor a device is
// rejected; below the advisory floor it registers with a recommendation.
const (
	MinStorageMB      = 50
	AdvisoryStorageMB = 100
)

// DeviceInfo is the caller-supplied description of a device to register.
type DeviceInfo struct {
	Name         string              `json:"name"`
	Type         models.DeviceType   `json:"type"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// Result is the outcome of a registration attempt. Recommendations are
// advisory strings, never hard failures.
type Result struct {
	DeviceID        string   `json:"device_id"`
	Accepted        bool     `json:"accepted"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Registry validates and records devices, creating default preferences on
// a user's first registration.
type Registry struct {
	store *store.Store
}

// New creates a Registry backed by the given store.
func New(st *store.Store) *Registry {
	return &Registry{store: st}
}

// RegisterDevice validates a device's capabilities and, on acceptance,
// appends it to the user's device list. SyncPreferences are created with
// defaults if the user has none. No network calls are made.
func (r *Registry) RegisterDevice(userID string, info DeviceInfo) (*Result, error) {
	res := &Result{}

	free := info.Capabilities.StorageAvailableMB()
	if free < MinStorageMB {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("at least %dMB of free storage is required (%dMB available)", MinStorageMB, free))
		return res, fmt.Errorf("%dMB free storage: %w", free, models.ErrDeviceRejected)
	}
	if free < AdvisoryStorageMB {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("free storage below %dMB; analytics sync may be skipped", AdvisoryStorageMB))
	}
	if info.Capabilities.PerformanceTier == models.PerfLow {
		res.Recommendations = append(res.Recommendations,
			"low performance tier: compression will be forced on for sync sessions")
	}
	if !info.Capabilities.SupportsOffline {
		res.Recommendations = append(res.Recommendations,
			"device does not support offline mode; changes made while disconnected will be lost")
	}

	deviceID, err := store.GenerateID("dev_")
	if err != nil {
		return res, err
	}

	err = r.store.WithUserLock(userID, func() error {
		d := &models.DeviceRecord{
			DeviceID:     deviceID,
			UserID:       userID,
			Name:         info.Name,
			Type:         info.Type,
			Capabilities: info.Capabilities,
			IsOnline:     true,
			RegisteredAt: time.Now().UTC(),
		}
		if err := r.store.InsertDevice(d); err != nil {
			return err
		}
		if _, err := r.store.GetPreferences(userID); err == models.ErrPreferencesNotFound {
			prefs := DefaultPreferences(userID)
			if err := r.store.PutPreferences(prefs); err != nil {
				return fmt.Errorf("create default preferences: %w", err)
			}
			slog.Info("created default preferences", "user", userID)
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	res.DeviceID = deviceID
	res.Accepted = true
	slog.Info("device registered", "user", userID, "device", deviceID, "type", info.Type)
	return res, nil
}

// DefaultPreferences returns the preferences created on first registration:
// real-time mode, latest-wins conflicts, 72h offline idle, compression
// above 1KB, encryption on for sensitive categories, weekly backups kept
// for 90 days.
func DefaultPreferences(userID string) *models.SyncPreferences {
	return &models.SyncPreferences{
		UserID: userID,
		Strategy: models.SyncStrategy{
			Mode:                 models.ModeRealTime,
			Priority:             models.AllCategories(),
			ConflictStrategy:     models.StrategyLatestWins,
			OfflineMaxIdle:       72 * time.Hour,
			CompressionEnabled:   true,
			CompressionThreshold: 1024,
			EncryptionEnabled:    true,
		},
		Privacy: models.PrivacySettings{
			SyncedCategories: models.AllCategories(),
		},
		Backup: models.BackupPolicy{
			Interval:  7 * 24 * time.Hour,
			Retention: 90 * 24 * time.Hour,
			MaxCount:  10,
		},
		Conflicts: models.ConflictPolicy{
			AutoResolve:       true,
			Default:           models.StrategyLatestWins,
			SkewTolerance:     0,
			EscalationTimeout: 24 * time.Hour,
			PendingThreshold:  5,
		},
		UpdatedAt: time.Now().UTC(),
	}
}
