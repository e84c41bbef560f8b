// Package engine orchestrates sync sessions between device pairs: scope
// and strategy resolution, collection, conflict handling and best-effort
// application of records to the target device.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/conflict"
	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/notify"
	"github.com/brewlab/brewsync/internal/store"
)

// lowPerfCompressionThreshold replaces the configured threshold when
// either device in a session declares a low performance tier.
const lowPerfCompressionThreshold = 512

// Engine runs sync sessions. Sessions are in-memory; only their side
// effects (device values, conflicts, lastSyncAt) persist.
type Engine struct {
	store     *store.Store
	collector *collector.Collector
	notifier  notify.Notifier

	mu     sync.Mutex
	active map[string]bool // device-pair keys with a session in flight

	history *History

	now func() time.Time
}

// New creates an Engine. A nil notifier discards escalations.
func New(st *store.Store, col *collector.Collector, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Engine{
		store:     st,
		collector: col,
		notifier:  notifier,
		active:    make(map[string]bool),
		history:   NewHistory(DefaultHistorySize),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Options narrows one SyncUserData call.
type Options struct {
	// Categories restricts the session scope. Empty means the scope is
	// derived from preferences and device characteristics.
	Categories []models.Category
	// Strategy overrides the configured conflict strategy for this
	// session only. Empty means use the per-user policy.
	Strategy models.ConflictStrategy
}

// Result summarizes one completed (or failed) sync session.
type Result struct {
	SessionID         string               `json:"session_id"`
	Status            models.SessionStatus `json:"status"`
	Strategy          models.SyncStrategy  `json:"strategy"`
	Scope             []models.Category    `json:"scope"`
	SyncedCategories  []models.Category    `json:"synced_categories"`
	Conflicts         []models.Conflict    `json:"conflicts,omitempty"`
	ConflictsResolved int                  `json:"conflicts_resolved"`
	ConflictsPending  int                  `json:"conflicts_pending"`
	Errors            []models.OpError     `json:"errors,omitempty"`
	Duration          time.Duration        `json:"duration"`
	Outcome           models.Outcome       `json:"outcome"`
}

// SyncUserData runs one session from source to target. A second call for
// the same device pair while one is in flight is rejected with
// ErrSyncInProgress. An unknown device is the only hard failure; every
// per-record problem is accumulated and the session still completes.
func (e *Engine) SyncUserData(ctx context.Context, userID, sourceID, targetID string, opts Options) (*Result, error) {
	source, err := e.store.GetDevice(sourceID)
	if err != nil {
		return nil, err
	}
	target, err := e.store.GetDevice(targetID)
	if err != nil {
		return nil, err
	}

	key := pairKey(sourceID, targetID)
	if !e.acquirePair(key) {
		return nil, fmt.Errorf("pair %s: %w", key, models.ErrSyncInProgress)
	}
	defer e.releasePair(key)

	prefs, err := e.store.GetPreferences(userID)
	if err != nil {
		return nil, err
	}

	session := &models.SyncSession{
		SessionID:      uuid.NewString(),
		UserID:         userID,
		SourceDeviceID: sourceID,
		TargetDeviceID: targetID,
		StartTime:      e.now(),
		Status:         models.SessionInitializing,
		Strategy:       resolveStrategy(prefs.Strategy, source, target),
	}
	if opts.Strategy != "" {
		session.Strategy.ConflictStrategy = opts.Strategy
	}
	scope := resolveScope(opts.Categories, prefs.Privacy.SyncedCategories, target)

	slog.Info("session started", "session", session.SessionID, "user", userID,
		"source", sourceID, "target", targetID, "scope", len(scope))

	res := &Result{
		SessionID: session.SessionID,
		Strategy:  session.Strategy,
		Scope:     scope,
	}

	err = e.store.WithUserLock(userID, func() error {
		return e.runSession(ctx, session, prefs, scope, res)
	})
	if err != nil {
		session.Status = models.SessionFailed
		e.finish(session, res)
		return res, err
	}

	if err := e.store.TouchDeviceSync(sourceID, e.now()); err != nil {
		res.Errors = append(res.Errors, models.OpError{Op: "touch", ItemID: sourceID, Message: err.Error()})
	}
	if err := e.store.TouchDeviceSync(targetID, e.now()); err != nil {
		res.Errors = append(res.Errors, models.OpError{Op: "touch", ItemID: targetID, Message: err.Error()})
	}

	session.Status = models.SessionCompleted
	e.finish(session, res)
	e.checkEscalations(userID, prefs.Conflicts)
	return res, nil
}

// runSession drives the syncing and resolving phases under the user lock.
func (e *Engine) runSession(ctx context.Context, session *models.SyncSession, prefs *models.SyncPreferences,
	scope []models.Category, res *Result) error {
	session.Status = models.SessionSyncing
	records, errs := e.collector.Collect(ctx, session.UserID, session.SourceDeviceID, scope)
	res.Errors = append(res.Errors, errs...)
	session.TotalItems = len(records)

	for _, rec := range records {
		applied, err := e.syncRecord(ctx, session, prefs, rec, res)
		if err != nil {
			res.Errors = append(res.Errors, models.OpError{
				Category: rec.Category,
				Op:       "apply",
				Message:  err.Error(),
			})
			session.ErrorCount++
			continue
		}
		if applied {
			session.CompletedItems++
			res.SyncedCategories = append(res.SyncedCategories, rec.Category)
		}
	}
	return nil
}

// syncRecord moves one record to the target, detecting and resolving any
// conflict on the way. Returns whether a value was applied.
func (e *Engine) syncRecord(ctx context.Context, session *models.SyncSession, prefs *models.SyncPreferences,
	rec models.SyncRecord, res *Result) (bool, error) {
	existing, err := e.store.GetDeviceValue(session.TargetDeviceID, rec.Category)
	if err != nil {
		return false, err
	}

	var target *conflict.TargetValue
	if existing != nil {
		target = &conflict.TargetValue{
			DeviceID:  session.TargetDeviceID,
			Timestamp: existing.UpdatedAt,
			Checksum:  existing.Checksum,
			Value:     existing.Payload,
		}
	}

	c := conflict.Detect(session.UserID, session.SessionID, rec, session.SourceDeviceID, target, prefs.Conflicts)
	if c == nil {
		return true, e.collector.Apply(ctx, session.UserID, session.TargetDeviceID, rec)
	}

	// The resolving phase is entered only when a conflict is detected;
	// a conflict-free session goes straight from syncing to completed.
	session.Status = models.SessionResolving
	session.ConflictCount++
	strategy := session.Strategy.ConflictStrategy
	if s := prefs.Conflicts.PerCategory[rec.Category]; s != "" {
		strategy = s
	}

	if prefs.Conflicts.AutoResolve {
		resolution, err := conflict.Resolve(c, strategy, prefs.Conflicts)
		if err != nil {
			return false, err
		}
		if resolution != nil {
			c.Resolution = resolution
			c.AutoResolved = true
			res.ConflictsResolved++
			res.Conflicts = append(res.Conflicts, *c)
			// Both sides converge on the resolved value; leaving the loser
			// in place would re-raise the same conflict on the next session.
			resolved := conflict.ResolvedRecord(c, resolution)
			if err := e.collector.Apply(ctx, session.UserID, session.SourceDeviceID, resolved); err != nil {
				return false, err
			}
			return true, e.collector.Apply(ctx, session.UserID, session.TargetDeviceID, resolved)
		}
	}

	// Manual conflict: record it, apply nothing.
	id, err := store.GenerateID("cf_")
	if err != nil {
		return false, err
	}
	c.ConflictID = id
	if err := e.store.InsertConflict(c); err != nil {
		return false, err
	}
	res.ConflictsPending++
	res.Conflicts = append(res.Conflicts, *c)
	slog.Info("conflict recorded for manual resolution", "conflict", id,
		"session", session.SessionID, "category", rec.Category)
	return false, nil
}

// finish stamps the session end, attaches the outcome and records the
// session in the bounded history.
func (e *Engine) finish(session *models.SyncSession, res *Result) {
	end := e.now()
	session.EndTime = &end
	res.Status = session.Status
	res.Duration = end.Sub(session.StartTime)
	res.Outcome = models.OutcomeOf(session.Status == models.SessionFailed, res.Errors, nil)
	e.history.Add(*session)
	slog.Info("session finished", "session", session.SessionID, "status", session.Status,
		"items", session.CompletedItems, "conflicts", session.ConflictCount,
		"errors", session.ErrorCount, "duration", res.Duration)
}

// checkEscalations surfaces stale or piled-up manual conflicts to the
// notification collaborator.
func (e *Engine) checkEscalations(userID string, policy models.ConflictPolicy) {
	pending, err := e.store.PendingConflicts(userID)
	if err != nil {
		slog.Warn("escalation check failed", "user", userID, "err", err)
		return
	}
	for _, esc := range conflict.Escalations(userID, pending, policy, e.now()) {
		e.notifier.Notify(userID, notify.KindConflictEscalation, esc)
	}
}

// Sessions returns the recent session history, newest first.
func (e *Engine) Sessions(userID string) []models.SyncSession {
	return e.history.ForUser(userID)
}

// ActiveSessions reports how many device pairs currently have a session
// in flight.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

func (e *Engine) acquirePair(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[key] {
		return false
	}
	e.active[key] = true
	return true
}

func (e *Engine) releasePair(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, key)
}

// pairKey is direction-independent: A→B and B→A contend for the same slot.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
