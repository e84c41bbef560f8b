// Package queue buffers mutations made while a device is offline and
// replays them, with bounded retries, once connectivity returns.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/conflict"
	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/store"
)

const (
	// DefaultMaxRetries bounds attempts per item before it is dropped.
	DefaultMaxRetries = 3
	// DefaultPollInterval is the advisory re-check interval while offline.
	DefaultPollInterval = time.Hour
	// baseBackoff seeds the exponential retry delay.
	baseBackoff = 30 * time.Second
	// maxBackoff caps the retry delay regardless of attempt count.
	maxBackoff = time.Hour
)

// Manager owns the offline queue and its drain cycle.
type Manager struct {
	store     *store.Store
	collector *collector.Collector

	pollInterval time.Duration
	now          func() time.Time
}

// NewManager creates a queue manager. Items are applied through the same
// collector path a sync session uses.
func NewManager(st *store.Store, col *collector.Collector) *Manager {
	return &Manager{
		store:        st,
		collector:    col,
		pollInterval: DefaultPollInterval,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue buffers a mutation made while the device is offline. Items for
// the same category on the same device apply in the order enqueued.
func (m *Manager) Enqueue(userID, deviceID string, cat models.Category, action models.QueueAction,
	payload json.RawMessage, dependsOn []string) (*models.OfflineQueueItem, error) {
	id, err := store.GenerateID("qi_")
	if err != nil {
		return nil, err
	}
	item := &models.OfflineQueueItem{
		ItemID:     id,
		UserID:     userID,
		DeviceID:   deviceID,
		Category:   cat,
		Action:     action,
		Payload:    payload,
		MaxRetries: DefaultMaxRetries,
		Status:     models.QueuePending,
		DependsOn:  dependsOn,
		EnqueuedAt: m.now(),
	}
	if err := m.store.WithUserLock(userID, func() error {
		return m.store.Enqueue(item)
	}); err != nil {
		return nil, err
	}
	slog.Debug("queued offline mutation", "device", deviceID, "category", cat, "action", action)
	return item, nil
}

// Result summarises one SyncOffline call.
type Result struct {
	Queued     int              `json:"queued"`
	Synced     int              `json:"synced"`
	Conflicts  int              `json:"conflicts"`
	Errors     []models.OpError `json:"errors,omitempty"`
	NextSyncAt *time.Time       `json:"next_sync_at,omitempty"`
	Outcome    models.Outcome   `json:"outcome"`
}

// SyncOffline reports queue state while offline, or drains the queue when
// the device has come back online. While offline NextSyncAt is purely
// advisory; nothing schedules on it.
func (m *Manager) SyncOffline(ctx context.Context, userID, deviceID string, isOnline bool) (*Result, error) {
	if _, err := m.store.GetDevice(deviceID); err != nil {
		return nil, err
	}

	if !isOnline {
		if err := m.store.SetDeviceOnline(deviceID, false); err != nil {
			return nil, err
		}
		pending, err := m.store.PendingItems(deviceID)
		if err != nil {
			return nil, err
		}
		next := m.now().Add(m.pollInterval)
		return &Result{
			Queued:     len(pending),
			NextSyncAt: &next,
			Outcome:    models.OutcomeOK,
		}, nil
	}

	if err := m.store.SetDeviceOnline(deviceID, true); err != nil {
		return nil, err
	}

	res := &Result{}
	err := m.store.WithUserLock(userID, func() error {
		return m.drain(ctx, userID, deviceID, res)
	})
	if err != nil {
		return nil, err
	}
	res.Outcome = models.OutcomeOf(false, res.Errors, nil)
	return res, nil
}

// drain applies pending items strictly in enqueue order per category.
// A failed or deferred item blocks later items of its category for the
// rest of the cycle, never items of other categories.
func (m *Manager) drain(ctx context.Context, userID, deviceID string, res *Result) error {
	items, err := m.store.AllItems(deviceID)
	if err != nil {
		return err
	}

	terminal := make(map[string]models.QueueItemStatus, len(items))
	for _, it := range items {
		if it.Status != models.QueuePending {
			terminal[it.ItemID] = it.Status
		}
	}

	blocked := make(map[models.Category]bool)
	now := m.now()

	for _, it := range items {
		if it.Status != models.QueuePending {
			continue
		}
		res.Queued++

		if blocked[it.Category] {
			continue
		}

		switch m.dependencyState(it, terminal) {
		case depFailed:
			cause := "dependency permanently failed"
			if err := m.store.MarkItemExhausted(it.ItemID, cause); err != nil {
				return err
			}
			terminal[it.ItemID] = models.QueueExhausted
			res.Errors = append(res.Errors, models.OpError{
				Category: it.Category, ItemID: it.ItemID, Op: "drain",
				Message: fmt.Sprintf("%s: %s", models.ErrQueueItemExhausted, cause),
			})
			slog.Warn("queue item failed by dependency cascade", "item", it.ItemID)
			continue
		case depWaiting:
			blocked[it.Category] = true
			continue
		}

		// Retried items wait out their backoff window until a later
		// drain cycle; no tight retry loops.
		if it.Retries > 0 && it.LastAttempt != nil {
			if now.Before(it.LastAttempt.Add(RetryDelay(it.Retries))) {
				blocked[it.Category] = true
				continue
			}
		}

		status, err := m.applyItem(ctx, userID, deviceID, it, res)
		if err != nil {
			return err
		}
		if status == models.QueuePending {
			// Still pending after a soft failure: preserve category order.
			blocked[it.Category] = true
		} else {
			terminal[it.ItemID] = status
		}
	}
	return nil
}

func (m *Manager) applyItem(ctx context.Context, userID, deviceID string, it models.OfflineQueueItem, res *Result) (models.QueueItemStatus, error) {
	conflicted, err := m.checkConflict(userID, deviceID, it, res)
	if err != nil {
		return models.QueuePending, err
	}
	if conflicted {
		return models.QueueApplied, nil
	}

	var applyErr error
	switch it.Action {
	case models.QueueDelete:
		applyErr = m.store.DeleteDeviceValue(deviceID, it.Category)
	default:
		applyErr = m.collector.Apply(ctx, userID, deviceID, models.SyncRecord{
			Category:  it.Category,
			Payload:   it.Payload,
			Version:   1,
			Checksum:  collector.Checksum(it.Payload),
			SizeBytes: int64(len(it.Payload)),
			Timestamp: it.EnqueuedAt,
		})
	}

	if applyErr != nil {
		exhausted, err := m.store.MarkItemFailed(it.ItemID, applyErr.Error())
		if err != nil {
			return models.QueuePending, err
		}
		if exhausted {
			res.Errors = append(res.Errors, models.OpError{
				Category: it.Category, ItemID: it.ItemID, Op: "apply",
				Message: fmt.Sprintf("%s after %d attempts: %s", models.ErrQueueItemExhausted, it.Retries+1, applyErr),
			})
			slog.Warn("queue item exhausted", "item", it.ItemID, "attempts", it.Retries+1)
			return models.QueueExhausted, nil
		}
		res.Errors = append(res.Errors, models.OpError{
			Category: it.Category, ItemID: it.ItemID, Op: "apply",
			Message: applyErr.Error(),
		})
		return models.QueuePending, nil
	}

	if err := m.store.MarkItemApplied(it.ItemID); err != nil {
		return models.QueuePending, err
	}
	res.Synced++
	return models.QueueApplied, nil
}

// checkConflict flags items whose category was updated on the device after
// the mutation was enqueued (e.g. synced in from another device while this
// one was offline). Detection and resolution follow the user's policy.
func (m *Manager) checkConflict(userID, deviceID string, it models.OfflineQueueItem, res *Result) (bool, error) {
	existing, err := m.store.GetDeviceValue(deviceID, it.Category)
	if err != nil {
		return false, err
	}
	if existing == nil || !existing.UpdatedAt.After(it.EnqueuedAt) {
		return false, nil
	}

	prefs, err := m.store.GetPreferences(userID)
	if err != nil {
		return false, err
	}

	rec := models.SyncRecord{
		Category:  it.Category,
		Payload:   it.Payload,
		Checksum:  collector.Checksum(it.Payload),
		Timestamp: it.EnqueuedAt,
	}
	c := conflict.Detect(userID, "", rec, deviceID, &conflict.TargetValue{
		DeviceID:  deviceID,
		Timestamp: existing.UpdatedAt,
		Checksum:  existing.Checksum,
		Value:     existing.Payload,
	}, prefs.Conflicts)
	if c == nil {
		return false, nil
	}

	res.Conflicts++
	id, err := store.GenerateID("cf_")
	if err != nil {
		return true, err
	}
	c.ConflictID = id
	if err := m.store.InsertConflict(c); err != nil {
		return true, err
	}
	// The queued value stays unapplied; the pending conflict carries it.
	if err := m.store.MarkItemApplied(it.ItemID); err != nil {
		return true, err
	}
	slog.Info("offline mutation conflicted with newer value", "item", it.ItemID, "category", it.Category)
	return true, nil
}

type depState int

const (
	depReady depState = iota
	depWaiting
	depFailed
)

// dependencyState gates an item on its declared dependencies: all must be
// terminal before it may run, and a permanently-failed dependency fails
// the item.
func (m *Manager) dependencyState(it models.OfflineQueueItem, terminal map[string]models.QueueItemStatus) depState {
	for _, dep := range it.DependsOn {
		switch terminal[dep] {
		case models.QueueExhausted:
			return depFailed
		case models.QueueApplied:
			continue
		default:
			return depWaiting
		}
	}
	return depReady
}

// RetryDelay computes the backoff before attempt n+1:
// base * 2^(attempt-1) plus up to one base interval of jitter.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseBackoff << uint(attempt-1)
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}
	return delay + time.Duration(rand.Int63n(int64(baseBackoff)))
}
