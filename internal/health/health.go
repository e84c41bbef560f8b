// Package health aggregates sync-related signals into an advisory status
// report. It never mutates anything.
package health

import (
	"errors"
	"time"

	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/store"
)

const (
	// QueueDepthWarning is the pending-item count past which the queue
	// counts as a health issue.
	QueueDepthWarning = 10
	// BackupFreshness is how recent the latest backup must be.
	BackupFreshness = 7 * 24 * time.Hour
	// criticalIssues is the independent-issue count that tips the verdict
	// from warning to critical.
	criticalIssues = 3
)

// Verdict is the overall health classification.
type Verdict string

const (
	Healthy  Verdict = "healthy"
	Warning  Verdict = "warning"
	Critical Verdict = "critical"
)

// Status is one user's aggregated sync health.
type Status struct {
	UserID            string                `json:"user_id"`
	Devices           []models.DeviceRecord `json:"devices"`
	OnlineDevices     int                   `json:"online_devices"`
	ActiveSessions    int                   `json:"active_sessions"`
	RecentSessions    []models.SyncSession  `json:"recent_sessions,omitempty"`
	QueueDepth        int                   `json:"queue_depth"`
	PendingConflicts  int                   `json:"pending_conflicts"`
	LatestBackupAt    *time.Time            `json:"latest_backup_at,omitempty"`
	Verdict           Verdict               `json:"verdict"`
	Issues            []string              `json:"issues,omitempty"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// Monitor builds health reports from the engine state store and the
// orchestrator's in-memory session state.
type Monitor struct {
	store  *store.Store
	engine *engine.Engine

	now func() time.Time
}

// NewMonitor creates a health monitor. The engine may be nil, in which
// case session figures are omitted.
func NewMonitor(st *store.Store, eng *engine.Engine) *Monitor {
	return &Monitor{
		store:  st,
		engine: eng,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetSyncStatus assembles the advisory health report for a user. Each
// issue is independent; three or more make the verdict critical, any at
// all make it a warning.
func (m *Monitor) GetSyncStatus(userID string) (*Status, error) {
	now := m.now()
	st := &Status{UserID: userID, GeneratedAt: now}

	devices, err := m.store.ListDevices(userID)
	if err != nil {
		return nil, err
	}
	st.Devices = devices
	offline := 0
	for _, d := range devices {
		if d.IsOnline {
			st.OnlineDevices++
		} else {
			offline++
		}
	}
	if offline > 0 && len(devices) > 0 {
		st.Issues = append(st.Issues, "one or more devices offline")
	}

	depth := 0
	for _, d := range devices {
		items, err := m.store.PendingItems(d.DeviceID)
		if err != nil {
			return nil, err
		}
		depth += len(items)
	}
	st.QueueDepth = depth
	if depth > QueueDepthWarning {
		st.Issues = append(st.Issues, "offline queue backing up")
	}

	pending, err := m.store.PendingConflicts(userID)
	if err != nil {
		return nil, err
	}
	st.PendingConflicts = len(pending)
	if len(pending) > 0 {
		st.Issues = append(st.Issues, "conflicts awaiting manual resolution")
	}

	backups, err := m.store.ListBackups(userID)
	if err != nil && !errors.Is(err, models.ErrBackupNotFound) {
		return nil, err
	}
	if len(backups) > 0 {
		latest := backups[0].CreatedAt
		st.LatestBackupAt = &latest
		if now.Sub(latest) > BackupFreshness {
			st.Issues = append(st.Issues, "latest backup older than 7 days")
		}
	} else {
		st.Issues = append(st.Issues, "no backups recorded")
	}

	if m.engine != nil {
		st.ActiveSessions = m.engine.ActiveSessions()
		st.RecentSessions = m.engine.Sessions(userID)
	}

	switch {
	case len(st.Issues) >= criticalIssues:
		st.Verdict = Critical
	case len(st.Issues) > 0:
		st.Verdict = Warning
	default:
		st.Verdict = Healthy
	}
	return st, nil
}
