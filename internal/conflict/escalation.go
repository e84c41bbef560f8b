package conflict

import (
	"fmt"
	"time"

	"github.com/brewlab/brewsync/internal/models"
)

// Escalation is surfaced to the notification collaborator when manual
// conflicts pile up or go stale. The engine never resolves these itself.
type Escalation struct {
	UserID     string   `json:"user_id"`
	Kind       string   `json:"kind"` // "threshold" or "timeout"
	Reason     string   `json:"reason"`
	ConflictID string   `json:"conflict_id,omitempty"`
	Pending    int      `json:"pending"`
}

// Escalations inspects a user's pending manual conflicts against the
// policy and returns any escalation events due at now.
func Escalations(userID string, pending []models.Conflict, policy models.ConflictPolicy, now time.Time) []Escalation {
	var out []Escalation

	if policy.PendingThreshold > 0 && len(pending) > policy.PendingThreshold {
		out = append(out, Escalation{
			UserID:  userID,
			Kind:    "threshold",
			Reason:  fmt.Sprintf("%d pending conflicts exceed threshold %d", len(pending), policy.PendingThreshold),
			Pending: len(pending),
		})
	}

	if policy.EscalationTimeout > 0 {
		for _, c := range pending {
			if now.Sub(c.DetectedAt) > policy.EscalationTimeout {
				out = append(out, Escalation{
					UserID:     userID,
					Kind:       "timeout",
					Reason:     fmt.Sprintf("conflict on %s unresolved for %s", c.Category, now.Sub(c.DetectedAt).Round(time.Minute)),
					ConflictID: c.ConflictID,
					Pending:    len(pending),
				})
			}
		}
	}
	return out
}
