package health

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/store"
)

func newTestMonitor(t *testing.T) (*Monitor, *store.Store, time.Time) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	m := NewMonitor(st, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, st, now
}

func addDevice(t *testing.T, st *store.Store, id string, online bool) {
	t.Helper()
	err := st.InsertDevice(&models.DeviceRecord{
		DeviceID: id, UserID: "u1", Name: id, Type: models.DeviceMobile,
		IsOnline: online, RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert device: %v", err)
	}
}

func addBackup(t *testing.T, st *store.Store, id string, createdAt time.Time) {
	t.Helper()
	err := st.InsertBackup(&models.CloudBackup{
		BackupID: id, UserID: "u1", Type: models.BackupFull,
		CreatedAt: createdAt, ExpiresAt: createdAt.Add(90 * 24 * time.Hour),
		Checksum: "sum", BlobKey: "u1/" + id,
		Categories: []models.Category{models.CategoryProfile},
	})
	if err != nil {
		t.Fatalf("insert backup: %v", err)
	}
}

func TestHealthyStatus(t *testing.T) {
	m, st, now := newTestMonitor(t)
	addDevice(t, st, "dev_1", true)
	addBackup(t, st, "bak_1", now.Add(-24*time.Hour))

	status, err := m.GetSyncStatus("u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Verdict != Healthy {
		t.Fatalf("verdict = %s, issues %v", status.Verdict, status.Issues)
	}
	if status.OnlineDevices != 1 || status.QueueDepth != 0 {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.LatestBackupAt == nil {
		t.Error("latest backup missing")
	}
}

func TestNoBackupsIsAnIssue(t *testing.T) {
	m, st, _ := newTestMonitor(t)
	addDevice(t, st, "dev_1", true)

	status, err := m.GetSyncStatus("u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Verdict != Warning {
		t.Fatalf("verdict = %s", status.Verdict)
	}
	if len(status.Issues) != 1 {
		t.Errorf("issues = %v", status.Issues)
	}
}

func TestStaleBackupWarns(t *testing.T) {
	m, st, now := newTestMonitor(t)
	addDevice(t, st, "dev_1", true)
	addBackup(t, st, "bak_1", now.Add(-8*24*time.Hour))

	status, _ := m.GetSyncStatus("u1")
	if status.Verdict != Warning {
		t.Fatalf("verdict = %s, issues %v", status.Verdict, status.Issues)
	}
}

func TestQueueDepthIssue(t *testing.T) {
	m, st, now := newTestMonitor(t)
	addDevice(t, st, "dev_1", true)
	addBackup(t, st, "bak_1", now.Add(-time.Hour))

	for i := 0; i < QueueDepthWarning+1; i++ {
		id, _ := store.GenerateID("qi_")
		err := st.Enqueue(&models.OfflineQueueItem{
			ItemID: id, UserID: "u1", DeviceID: "dev_1",
			Category: models.CategoryRecipes, Action: models.QueueUpdate,
			Payload: json.RawMessage(`{}`), MaxRetries: 3,
			Status: models.QueuePending, EnqueuedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	status, _ := m.GetSyncStatus("u1")
	if status.QueueDepth != QueueDepthWarning+1 {
		t.Errorf("depth = %d", status.QueueDepth)
	}
	if status.Verdict != Warning {
		t.Fatalf("verdict = %s", status.Verdict)
	}
}

func TestCriticalAtThreeIssues(t *testing.T) {
	m, st, _ := newTestMonitor(t)
	// Offline device, pending conflict, no backups: three independent issues.
	addDevice(t, st, "dev_1", false)
	err := st.InsertConflict(&models.Conflict{
		ConflictID: "cf_1", UserID: "u1", SessionID: "s1",
		Category: models.CategoryRecipes,
		Source: models.ConflictSide{DeviceID: "dev_1", Timestamp: time.Now().UTC(),
			Checksum: "a", Value: json.RawMessage(`{}`)},
		Target: models.ConflictSide{DeviceID: "dev_2", Timestamp: time.Now().UTC(),
			Checksum: "b", Value: json.RawMessage(`{}`)},
		DetectedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert conflict: %v", err)
	}

	status, err := m.GetSyncStatus("u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.Issues) != 3 {
		t.Fatalf("issues = %v", status.Issues)
	}
	if status.Verdict != Critical {
		t.Fatalf("verdict = %s", status.Verdict)
	}
	if status.PendingConflicts != 1 {
		t.Errorf("pending conflicts = %d", status.PendingConflicts)
	}
}

func TestStatusForUnknownUser(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	status, err := m.GetSyncStatus("ghost")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	// No devices, no backups: still a report, flagged for the missing backup.
	if len(status.Devices) != 0 {
		t.Errorf("devices = %+v", status.Devices)
	}
	if status.Verdict != Warning {
		t.Errorf("verdict = %s, issues %v", status.Verdict, status.Issues)
	}
}
