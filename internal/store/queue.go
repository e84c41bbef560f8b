package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// Enqueue appends a mutation to a device's offline queue. The AUTOINCREMENT
// seq column preserves enqueue order across drains.
func (s *Store) Enqueue(item *models.OfflineQueueItem) error {
	deps, err := json.Marshal(item.DependsOn)
	if err != nil {
		return fmt.Errorf("marshal depends_on: %w", err)
	}
	if item.DependsOn == nil {
		deps = []byte("[]")
	}
	_, err = s.conn.Exec(
		`INSERT INTO queue_items (id, user_id, device_id, category, action, payload, retries, max_retries, depends_on, status, enqueued_at, last_attempt, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.UserID, item.DeviceID, string(item.Category), string(item.Action),
		string(item.Payload), item.Retries, item.MaxRetries, string(deps),
		string(item.Status), item.EnqueuedAt, item.LastAttempt, item.LastError,
	)
	if err != nil {
		return fmt.Errorf("enqueue item: %w", err)
	}
	return nil
}

// PendingItems returns a device's pending queue items in enqueue order.
func (s *Store) PendingItems(deviceID string) ([]models.OfflineQueueItem, error) {
	return s.queueItems(`SELECT id, user_id, device_id, category, action, payload, retries, max_retries, depends_on, status, enqueued_at, last_attempt, last_error
		 FROM queue_items WHERE device_id = ? AND status = 'pending' ORDER BY seq ASC`, deviceID)
}

// AllItems returns every queue item for a device in enqueue order,
// including terminal ones. Used for dependency gating during a drain.
func (s *Store) AllItems(deviceID string) ([]models.OfflineQueueItem, error) {
	return s.queueItems(`SELECT id, user_id, device_id, category, action, payload, retries, max_retries, depends_on, status, enqueued_at, last_attempt, last_error
		 FROM queue_items WHERE device_id = ? ORDER BY seq ASC`, deviceID)
}

func (s *Store) queueItems(query string, args ...any) ([]models.OfflineQueueItem, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue items: %w", err)
	}
	defer rows.Close()

	var items []models.OfflineQueueItem
	for rows.Next() {
		var it models.OfflineQueueItem
		var cat, action, payload, deps, status string
		if err := rows.Scan(&it.ItemID, &it.UserID, &it.DeviceID, &cat, &action, &payload,
			&it.Retries, &it.MaxRetries, &deps, &status, &it.EnqueuedAt, &it.LastAttempt, &it.LastError); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		it.Category = models.Category(cat)
		it.Action = models.QueueAction(action)
		it.Payload = json.RawMessage(payload)
		it.Status = models.QueueItemStatus(status)
		if err := json.Unmarshal([]byte(deps), &it.DependsOn); err != nil {
			return nil, fmt.Errorf("parse depends_on: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// QueueDepth returns the number of pending queue items for a user.
func (s *Store) QueueDepth(userID string) (int, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM queue_items WHERE user_id = ? AND status = 'pending'`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}

// MarkItemApplied marks a queue item successfully applied.
func (s *Store) MarkItemApplied(itemID string) error {
	_, err := s.conn.Exec(
		`UPDATE queue_items SET status = 'applied', last_error = '' WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("mark item applied: %w", err)
	}
	return nil
}

// MarkItemFailed increments an item's retry count. Once retries reach
// max_retries the item becomes exhausted and is never attempted again.
func (s *Store) MarkItemFailed(itemID string, cause string) (exhausted bool, err error) {
	res, err := s.conn.Exec(
		`UPDATE queue_items SET retries = retries + 1, last_error = ?, last_attempt = ?,
		   status = CASE WHEN retries + 1 >= max_retries THEN 'exhausted' ELSE 'pending' END
		 WHERE id = ? AND status = 'pending'`, cause, time.Now().UTC(), itemID)
	if err != nil {
		return false, fmt.Errorf("mark item failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	var status string
	if err := s.conn.QueryRow(`SELECT status FROM queue_items WHERE id = ?`, itemID).Scan(&status); err != nil {
		return false, fmt.Errorf("read item status: %w", err)
	}
	return status == string(models.QueueExhausted), nil
}

// MarkItemExhausted forces a queue item into the exhausted state. Used for
// cascading failures from permanently-failed dependencies.
func (s *Store) MarkItemExhausted(itemID string, cause string) error {
	_, err := s.conn.Exec(
		`UPDATE queue_items SET status = 'exhausted', last_error = ? WHERE id = ?`, cause, itemID)
	if err != nil {
		return fmt.Errorf("mark item exhausted: %w", err)
	}
	return nil
}

// PruneAppliedItems deletes applied items older than the cutoff and
// returns the number removed.
func (s *Store) PruneAppliedItems(before time.Time) (int64, error) {
	res, err := s.conn.Exec(
		`DELETE FROM queue_items WHERE status = 'applied' AND enqueued_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune applied items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
