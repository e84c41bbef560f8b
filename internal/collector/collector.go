// Package collector reads current-state snapshots of each data category
// from the external personalization stores for a sync scope, computing the
// checksum and size metadata the orchestrator needs.
package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/store"
)

// CategoryStore is the narrow contract a personalization store must
// satisfy. Payload shape is opaque JSON.
type CategoryStore interface {
	Get(ctx context.Context, userID string) (json.RawMessage, error)
	Set(ctx context.Context, userID string, payload json.RawMessage) error
}

// Stores maps each syncable category to its external store. The profile,
// calculator-settings and analytics collaborators are required; the rest
// may be absent, in which case those categories are skipped.
type Stores map[models.Category]CategoryStore

// Collector assembles SyncRecords for a session's scope.
type Collector struct {
	stores Stores
	engine *store.Store
}

// New creates a Collector over the given collaborator stores and engine
// state store.
func New(stores Stores, engine *store.Store) *Collector {
	return &Collector{stores: stores, engine: engine}
}

// Collect builds one SyncRecord per in-scope category. The source device's
// recorded value wins over the external store so that timestamps reflect
// the device's actual state; the external store fills gaps for categories
// the device has never synced.
func (c *Collector) Collect(ctx context.Context, userID, sourceDeviceID string, scope []models.Category) ([]models.SyncRecord, []models.OpError) {
	var records []models.SyncRecord
	var errs []models.OpError

	for _, cat := range scope {
		rec, err := c.collectOne(ctx, userID, sourceDeviceID, cat)
		if err != nil {
			errs = append(errs, models.OpError{
				Category: cat,
				Op:       "collect",
				Message:  err.Error(),
			})
			continue
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, errs
}

func (c *Collector) collectOne(ctx context.Context, userID, sourceDeviceID string, cat models.Category) (*models.SyncRecord, error) {
	if v, err := c.engine.GetDeviceValue(sourceDeviceID, cat); err != nil {
		return nil, err
	} else if v != nil {
		return recordFrom(cat, v.Payload, v.Version, v.UpdatedAt), nil
	}

	cs, ok := c.stores[cat]
	if !ok {
		return nil, nil
	}
	payload, err := cs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read %s store: %w", cat, err)
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return recordFrom(cat, payload, 1, time.Now().UTC()), nil
}

// Apply writes a record's payload to the target device's per-category
// value and to the category's external store.
func (c *Collector) Apply(ctx context.Context, userID, targetDeviceID string, rec models.SyncRecord) error {
	if err := c.engine.PutDeviceValue(&store.DeviceValue{
		DeviceID:  targetDeviceID,
		Category:  rec.Category,
		Payload:   rec.Payload,
		Version:   rec.Version,
		Checksum:  rec.Checksum,
		UpdatedAt: rec.Timestamp,
	}); err != nil {
		return err
	}
	if cs, ok := c.stores[rec.Category]; ok {
		if err := cs.Set(ctx, userID, rec.Payload); err != nil {
			return fmt.Errorf("write %s store: %w", rec.Category, err)
		}
	}
	return nil
}

func recordFrom(cat models.Category, payload json.RawMessage, version int64, ts time.Time) *models.SyncRecord {
	return &models.SyncRecord{
		Category:     cat,
		Payload:      payload,
		Version:      version,
		Checksum:     Checksum(payload),
		SizeBytes:    int64(len(payload)),
		Compressible: isStructured(payload),
		Sensitive:    models.SensitiveCategories()[cat],
		Timestamp:    ts,
	}
}

// Checksum returns the hex SHA-256 digest of a payload.
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// isStructured reports whether a payload is a JSON object or array, the
// shapes that benefit from compression and allow field merges.
func isStructured(payload []byte) bool {
	for _, b := range payload {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
