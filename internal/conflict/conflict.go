// Package conflict detects divergent category values between two devices
// and resolves them through a closed set of strategies.
package conflict

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/models"
)

// Detect compares an incoming record against the target's existing value.
// It returns nil when the values agree: timestamps within the policy's
// skew tolerance and equal checksums. Equal timestamps with different
// checksums are ambiguous and produce a manual-only conflict.
func Detect(userID, sessionID string, incoming models.SyncRecord, sourceDeviceID string,
	target *TargetValue, policy models.ConflictPolicy) *models.Conflict {
	if target == nil {
		return nil
	}

	delta := incoming.Timestamp.Sub(target.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	if delta <= policy.SkewTolerance && incoming.Checksum == target.Checksum {
		return nil
	}

	// Equal timestamps with different checksums fall through here too;
	// Ambiguous() flags them so they are never silently resolved.
	return newConflict(userID, sessionID, incoming, sourceDeviceID, target)
}

// TargetValue is the target device's current value for a category.
type TargetValue struct {
	DeviceID  string
	Timestamp time.Time
	Checksum  string
	Value     json.RawMessage
}

func newConflict(userID, sessionID string, incoming models.SyncRecord, sourceDeviceID string,
	target *TargetValue) *models.Conflict {
	c := &models.Conflict{
		UserID:    userID,
		SessionID: sessionID,
		Category:  incoming.Category,
		Source: models.ConflictSide{
			DeviceID:  sourceDeviceID,
			Timestamp: incoming.Timestamp,
			Checksum:  incoming.Checksum,
			Value:     incoming.Payload,
		},
		Target: models.ConflictSide{
			DeviceID:  target.DeviceID,
			Timestamp: target.Timestamp,
			Checksum:  target.Checksum,
			Value:     target.Value,
		},
		DetectedAt: time.Now().UTC(),
	}
	return c
}

// Ambiguous reports whether a conflict has equal timestamps but different
// checksums, which only manual resolution may settle.
func Ambiguous(c *models.Conflict) bool {
	return c.Source.Timestamp.Equal(c.Target.Timestamp) && c.Source.Checksum != c.Target.Checksum
}

// Resolve applies a strategy to a conflict. All strategies dispatch through
// this one function. A nil resolution with no error means the conflict
// requires manual handling and must not be applied.
func Resolve(c *models.Conflict, strategy models.ConflictStrategy, policy models.ConflictPolicy) (*models.ConflictResolution, error) {
	if Ambiguous(c) {
		return nil, nil
	}

	switch strategy {
	case models.StrategyLatestWins:
		return latestWins(c), nil

	case models.StrategyMerge:
		return merge(c), nil

	case models.StrategyDevicePriority:
		return devicePriority(c, policy.DevicePriority), nil

	case models.StrategyManual:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown conflict strategy %q", strategy)
	}
}

// latestWins picks the side with the later timestamp. An exact tie is a
// manual conflict (nil resolution).
func latestWins(c *models.Conflict) *models.ConflictResolution {
	if c.Source.Timestamp.Equal(c.Target.Timestamp) {
		return nil
	}
	winner := c.Source
	if c.Target.Timestamp.After(c.Source.Timestamp) {
		winner = c.Target
	}
	return resolution(models.StrategyLatestWins, winner.Value, winner.DeviceID)
}

// merge performs a shallow field union of both payloads; on overlapping
// keys the side with the later timestamp wins per key. Scalar payloads
// degrade to latest-wins.
func merge(c *models.Conflict) *models.ConflictResolution {
	var newer, older models.ConflictSide
	if c.Source.Timestamp.After(c.Target.Timestamp) {
		newer, older = c.Source, c.Target
	} else {
		newer, older = c.Target, c.Source
	}

	var newerFields, olderFields map[string]json.RawMessage
	if json.Unmarshal(newer.Value, &newerFields) != nil || json.Unmarshal(older.Value, &olderFields) != nil {
		slog.Warn("merge strategy on scalar payload, degrading to latest-wins",
			"category", c.Category)
		return latestWins(c)
	}

	merged := make(map[string]json.RawMessage, len(olderFields)+len(newerFields))
	for k, v := range olderFields {
		merged[k] = v
	}
	for k, v := range newerFields {
		merged[k] = v
	}

	out, err := json.Marshal(merged)
	if err != nil {
		slog.Warn("merge marshal failed, degrading to latest-wins", "category", c.Category, "err", err)
		return latestWins(c)
	}
	res := resolution(models.StrategyMerge, out, newer.DeviceID)
	return res
}

// devicePriority resolves using the configured ranked device list; the
// higher-ranked device wins regardless of timestamp. If neither device is
// ranked the conflict falls back to latest-wins.
func devicePriority(c *models.Conflict, ranking []string) *models.ConflictResolution {
	sourceRank, targetRank := -1, -1
	for i, id := range ranking {
		if id == c.Source.DeviceID && sourceRank == -1 {
			sourceRank = i
		}
		if id == c.Target.DeviceID && targetRank == -1 {
			targetRank = i
		}
	}
	switch {
	case sourceRank == -1 && targetRank == -1:
		return latestWins(c)
	case targetRank == -1 || (sourceRank != -1 && sourceRank < targetRank):
		return resolution(models.StrategyDevicePriority, c.Source.Value, c.Source.DeviceID)
	default:
		return resolution(models.StrategyDevicePriority, c.Target.Value, c.Target.DeviceID)
	}
}

func resolution(s models.ConflictStrategy, value json.RawMessage, winnerID string) *models.ConflictResolution {
	now := time.Now().UTC()
	return &models.ConflictResolution{
		Strategy:   s,
		Result:     value,
		ResolvedAt: &now,
		WinnerID:   winnerID,
	}
}

// ResolvedRecord builds the SyncRecord to apply for a resolved conflict.
func ResolvedRecord(c *models.Conflict, res *models.ConflictResolution) models.SyncRecord {
	ts := c.Source.Timestamp
	if c.Target.Timestamp.After(ts) {
		ts = c.Target.Timestamp
	}
	return models.SyncRecord{
		Category:  c.Category,
		Payload:   res.Result,
		Version:   1,
		Checksum:  collector.Checksum(res.Result),
		SizeBytes: int64(len(res.Result)),
		Sensitive: models.SensitiveCategories()[c.Category],
		Timestamp: ts,
	}
}
