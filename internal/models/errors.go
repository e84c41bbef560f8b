package models

import "errors"

// Error taxonomy for the sync engine. Hard errors abort the enclosing
// operation; soft errors are accumulated into the operation's result and
// do not abort sibling work.
var (
	// ErrDeviceNotFound is a hard error: the session fails immediately.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceRejected means capability validation failed at registration.
	ErrDeviceRejected = errors.New("device rejected")

	// ErrPreferencesNotFound is a hard error for operations that require
	// an existing per-user configuration.
	ErrPreferencesNotFound = errors.New("sync preferences not found")

	// ErrConflictUnresolved marks a manual conflict blocking application.
	// It is always surfaced, never silently resolved.
	ErrConflictUnresolved = errors.New("conflict unresolved")

	// ErrTransferFailure is a soft per-record apply failure.
	ErrTransferFailure = errors.New("transfer failure")

	// ErrIntegrityCheckFailed means a checksum mismatch on restore.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	// ErrCodecFailure wraps compression/encryption/decryption errors.
	ErrCodecFailure = errors.New("codec failure")

	// ErrRetentionViolation means the requested retention combination is
	// impossible to satisfy.
	ErrRetentionViolation = errors.New("retention violation")

	// ErrQueueItemExhausted means an offline item exceeded its retries.
	ErrQueueItemExhausted = errors.New("queue item exhausted")

	// ErrSyncInProgress means a session for the same device pair is
	// already active; the request is rejected, not queued.
	ErrSyncInProgress = errors.New("sync already in progress for device pair")

	// ErrBackupNotFound means the requested backup id is unknown.
	ErrBackupNotFound = errors.New("backup not found")
)

// OpError is a soft error attached to a single record or queue item inside
// a larger operation. It never aborts sibling work.
type OpError struct {
	Category Category `json:"category,omitempty"`
	ItemID   string   `json:"item_id,omitempty"`
	Op       string   `json:"op"`
	Message  string   `json:"message"`
}

// Outcome distinguishes "succeeded fully", "succeeded with warnings" and
// "failed" so a caller can always tell whether divergence is possible.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeWarnings Outcome = "warnings"
	OutcomeFailed   Outcome = "failed"
)

// OutcomeOf derives the outcome from accumulated errors and warnings.
func OutcomeOf(failed bool, errs []OpError, warnings []string) Outcome {
	if failed {
		return OutcomeFailed
	}
	if len(errs) > 0 || len(warnings) > 0 {
		return OutcomeWarnings
	}
	return OutcomeOK
}
