package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brewlab/brewsync/internal/conflict"
	"github.com/brewlab/brewsync/internal/models"
)

// ManualDecision is an out-of-band settlement of a pending conflict. Either
// a side wins, or an explicit replacement value is supplied.
type ManualDecision struct {
	// WinnerID names the device whose value wins. Ignored when Value is set.
	WinnerID string `json:"winner_id,omitempty"`
	// Value replaces both sides outright.
	Value json.RawMessage `json:"value,omitempty"`
}

// ResolvePendingConflict settles a conflict the engine left for manual
// handling. The resolution is recorded and the winning value is applied to
// both devices' stores. An already-resolved or unknown conflict errors.
func (e *Engine) ResolvePendingConflict(ctx context.Context, userID, conflictID string, decision ManualDecision) error {
	c, err := e.store.GetConflict(conflictID)
	if err != nil {
		return err
	}
	if c == nil || c.UserID != userID {
		return fmt.Errorf("conflict %s: %w", conflictID, models.ErrConflictUnresolved)
	}
	if c.Resolution != nil {
		return fmt.Errorf("conflict %s already resolved: %w", conflictID, models.ErrConflictUnresolved)
	}

	res, err := manualResolution(c, decision)
	if err != nil {
		return err
	}

	return e.store.WithUserLock(userID, func() error {
		if err := e.store.ResolveConflict(conflictID, res); err != nil {
			return err
		}
		rec := conflict.ResolvedRecord(c, res)
		if err := e.collector.Apply(ctx, userID, c.Source.DeviceID, rec); err != nil {
			return err
		}
		if err := e.collector.Apply(ctx, userID, c.Target.DeviceID, rec); err != nil {
			return err
		}
		slog.Info("manual conflict resolved", "conflict", conflictID,
			"category", c.Category, "winner", res.WinnerID)
		return nil
	})
}

func manualResolution(c *models.Conflict, decision ManualDecision) (*models.ConflictResolution, error) {
	now := time.Now().UTC()
	if len(decision.Value) > 0 {
		return &models.ConflictResolution{
			Strategy:   models.StrategyManual,
			Result:     decision.Value,
			ResolvedAt: &now,
		}, nil
	}
	switch decision.WinnerID {
	case c.Source.DeviceID:
		return &models.ConflictResolution{
			Strategy:   models.StrategyManual,
			Result:     c.Source.Value,
			ResolvedAt: &now,
			WinnerID:   c.Source.DeviceID,
		}, nil
	case c.Target.DeviceID:
		return &models.ConflictResolution{
			Strategy:   models.StrategyManual,
			Result:     c.Target.Value,
			ResolvedAt: &now,
			WinnerID:   c.Target.DeviceID,
		}, nil
	default:
		return nil, fmt.Errorf("winner %q is neither side of conflict %s: %w",
			decision.WinnerID, c.ConflictID, models.ErrConflictUnresolved)
	}
}

// PendingConflicts lists a user's conflicts awaiting manual resolution.
func (e *Engine) PendingConflicts(userID string) ([]models.Conflict, error) {
	return e.store.PendingConflicts(userID)
}
