package models

import (
	"encoding/json"
	"time"
)

// DeviceType represents the class of a registered device
type DeviceType string

const (
	DeviceMobile   DeviceType = "mobile"
	DeviceTablet   DeviceType = "tablet"
	DeviceDesktop  DeviceType = "desktop"
	DeviceWearable DeviceType = "wearable"
	DeviceTV       DeviceType = "tv"
)

// PerformanceTier represents the declared performance class of a device
type PerformanceTier string

const (
	PerfLow    PerformanceTier = "low"
	PerfMedium PerformanceTier = "medium"
	PerfHigh   PerformanceTier = "high"
)

// Category represents one syncable data category
type Category string

const (
	CategoryProfile     Category = "profile"
	CategoryPreferences Category = "preferences"
	CategoryCalculator  Category = "calculator"
	CategoryRecipes     Category = "recipes"
	CategoryAnalytics   Category = "analytics"
)

// AllCategories returns every syncable category in default priority order.
func AllCategories() []Category {
	return []Category{
		CategoryProfile,
		CategoryPreferences,
		CategoryCalculator,
		CategoryRecipes,
		CategoryAnalytics,
	}
}

// SensitiveCategories are encrypted in backups regardless of preferences.
func SensitiveCategories() map[Category]bool {
	return map[Category]bool{
		CategoryProfile:     true,
		CategoryPreferences: true,
	}
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryProfile, CategoryPreferences, CategoryCalculator, CategoryRecipes, CategoryAnalytics:
		return true
	}
	return false
}

// Capabilities describes the declared hardware/software limits of a device.
type Capabilities struct {
	SupportsOffline bool            `json:"supports_offline"`
	StorageTotalMB  int64           `json:"storage_total_mb"`
	StorageUsedMB   int64           `json:"storage_used_mb"`
	PerformanceTier PerformanceTier `json:"performance_tier"`
	SupportsPush    bool            `json:"supports_push"`
}

// StorageAvailableMB returns the free storage a device has declared.
func (c Capabilities) StorageAvailableMB() int64 {
	free := c.StorageTotalMB - c.StorageUsedMB
	if free < 0 {
		return 0
	}
	return free
}

// DeviceRecord tracks one registered device for a user.
// Devices are never silently deleted; removal is an explicit user action.
type DeviceRecord struct {
	DeviceID     string       `json:"device_id"`
	UserID       string       `json:"user_id"`
	Name         string       `json:"name"`
	Type         DeviceType   `json:"type"`
	Capabilities Capabilities `json:"capabilities"`
	LastSyncAt   *time.Time   `json:"last_sync_at,omitempty"`
	IsOnline     bool         `json:"is_online"`
	RegisteredAt time.Time    `json:"registered_at"`
}

// SessionStatus represents the lifecycle state of a sync session
type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionSyncing      SessionStatus = "syncing"
	SessionResolving    SessionStatus = "resolving"
	SessionCompleted    SessionStatus = "completed"
	SessionFailed       SessionStatus = "failed"
)

// SyncSession identifies one synchronization attempt between two devices.
// Immutable once completed or failed.
type SyncSession struct {
	SessionID      string        `json:"session_id"`
	UserID         string        `json:"user_id"`
	SourceDeviceID string        `json:"source_device_id"`
	TargetDeviceID string        `json:"target_device_id"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Status         SessionStatus `json:"status"`
	TotalItems     int           `json:"total_items"`
	CompletedItems int           `json:"completed_items"`
	ConflictCount  int           `json:"conflict_count"`
	ErrorCount     int           `json:"error_count"`
	Strategy       SyncStrategy  `json:"strategy"`
}

// SyncRecord is one unit of data moved in a session. Ephemeral: it exists
// only for the duration of the session that collected it.
type SyncRecord struct {
	Category     Category        `json:"category"`
	Payload      json.RawMessage `json:"payload"`
	Version      int64           `json:"version"`
	Checksum     string          `json:"checksum"`
	SizeBytes    int64           `json:"size_bytes"`
	Compressible bool            `json:"compressible"`
	Sensitive    bool            `json:"sensitive"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ConflictStrategy represents a conflict resolution strategy. The set is
// closed: every strategy is dispatched through one resolution function.
type ConflictStrategy string

const (
	StrategyLatestWins     ConflictStrategy = "latest-wins"
	StrategyMerge          ConflictStrategy = "merge"
	StrategyDevicePriority ConflictStrategy = "device-priority"
	StrategyManual         ConflictStrategy = "manual"
)

// ValidStrategy reports whether s names a known conflict strategy.
func ValidStrategy(s string) bool {
	switch ConflictStrategy(s) {
	case StrategyLatestWins, StrategyMerge, StrategyDevicePriority, StrategyManual:
		return true
	}
	return false
}

// ConflictSide captures one device's version of a contested value.
type ConflictSide struct {
	DeviceID  string          `json:"device_id"`
	Timestamp time.Time       `json:"timestamp"`
	Checksum  string          `json:"checksum"`
	Value     json.RawMessage `json:"value"`
}

// ConflictResolution records the strategy applied and its result, if any.
type ConflictResolution struct {
	Strategy   ConflictStrategy `json:"strategy"`
	Result     json.RawMessage  `json:"result,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	WinnerID   string           `json:"winner_id,omitempty"`
}

// Conflict is a detected divergence on one category between two devices.
// A conflict with AutoResolved false must never be applied to a device
// store until a resolution decision is recorded.
type Conflict struct {
	ConflictID   string              `json:"conflict_id"`
	UserID       string              `json:"user_id"`
	SessionID    string              `json:"session_id"`
	Category     Category            `json:"category"`
	Source       ConflictSide        `json:"source"`
	Target       ConflictSide        `json:"target"`
	Resolution   *ConflictResolution `json:"resolution,omitempty"`
	AutoResolved bool                `json:"auto_resolved"`
	DetectedAt   time.Time           `json:"detected_at"`
}

// QueueAction represents the kind of mutation held in the offline queue
type QueueAction string

const (
	QueueCreate QueueAction = "create"
	QueueUpdate QueueAction = "update"
	QueueDelete QueueAction = "delete"
)

// QueueItemStatus represents the terminal/non-terminal state of a queue item
type QueueItemStatus string

const (
	QueuePending   QueueItemStatus = "pending"
	QueueApplied   QueueItemStatus = "applied"
	QueueExhausted QueueItemStatus = "exhausted"
)

// OfflineQueueItem is a pending mutation buffered while a device is offline.
// Items for the same category on the same device apply in enqueue order.
type OfflineQueueItem struct {
	ItemID      string          `json:"item_id"`
	UserID      string          `json:"user_id"`
	DeviceID    string          `json:"device_id"`
	Category    Category        `json:"category"`
	Action      QueueAction     `json:"action"`
	Payload     json.RawMessage `json:"payload"`
	Retries     int             `json:"retries"`
	MaxRetries  int             `json:"max_retries"`
	DependsOn   []string        `json:"depends_on,omitempty"`
	Status      QueueItemStatus `json:"status"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	LastAttempt *time.Time      `json:"last_attempt,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// BackupType represents how much data a backup captures
type BackupType string

const (
	BackupFull         BackupType = "full"
	BackupIncremental  BackupType = "incremental"
	BackupDifferential BackupType = "differential"
)

// CloudBackup is an immutable, versioned snapshot of a user's data. Once
// created the payload is never mutated; only integrity metadata may change.
type CloudBackup struct {
	BackupID   string     `json:"backup_id"`
	UserID     string     `json:"user_id"`
	Type       BackupType `json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	SizeBytes  int64      `json:"size_bytes"`
	Compressed bool       `json:"compressed"`
	Encrypted  bool       `json:"encrypted"`
	Checksum   string     `json:"checksum"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	BlobKey    string     `json:"blob_key"`
	Categories []Category `json:"categories"`
}

// Expired reports whether the backup has passed its retention window.
func (b CloudBackup) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// SyncMode represents when sync sessions are triggered
type SyncMode string

const (
	ModeRealTime  SyncMode = "real-time"
	ModeScheduled SyncMode = "scheduled"
	ModeManual    SyncMode = "manual"
)

// SyncStrategy is the effective plan for one sync session.
type SyncStrategy struct {
	Mode                 SyncMode         `json:"mode"`
	Priority             []Category       `json:"priority"`
	ConflictStrategy     ConflictStrategy `json:"conflict_strategy"`
	OfflineMaxIdle       time.Duration    `json:"offline_max_idle"`
	CompressionEnabled   bool             `json:"compression_enabled"`
	CompressionThreshold int64            `json:"compression_threshold"`
	EncryptionEnabled    bool             `json:"encryption_enabled"`
}

// ConflictPolicy is the per-user conflict-handling configuration.
type ConflictPolicy struct {
	AutoResolve       bool                          `json:"auto_resolve"`
	Default           ConflictStrategy              `json:"default"`
	PerCategory       map[Category]ConflictStrategy `json:"per_category,omitempty"`
	DevicePriority    []string                      `json:"device_priority,omitempty"`
	SkewTolerance     time.Duration                 `json:"skew_tolerance"`
	EscalationTimeout time.Duration                 `json:"escalation_timeout"`
	PendingThreshold  int                           `json:"pending_threshold"`
}

// BackupPolicy is the per-user backup schedule and retention configuration.
type BackupPolicy struct {
	Interval  time.Duration `json:"interval"`
	Retention time.Duration `json:"retention"`
	MaxCount  int           `json:"max_count"`
}

// PrivacySettings controls which categories sync and how long they are kept.
type PrivacySettings struct {
	SyncedCategories []Category                 `json:"synced_categories"`
	Retention        map[Category]time.Duration `json:"retention,omitempty"`
}

// SyncPreferences is the per-user sync configuration. Created with defaults
// on first device registration; updated only through an explicit
// preference-update operation that re-validates consistency.
type SyncPreferences struct {
	UserID    string          `json:"user_id"`
	Strategy  SyncStrategy    `json:"strategy"`
	Privacy   PrivacySettings `json:"privacy"`
	Backup    BackupPolicy    `json:"backup"`
	Conflicts ConflictPolicy  `json:"conflicts"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StrategyFor returns the conflict strategy configured for a category,
// falling back to the policy default.
func (p ConflictPolicy) StrategyFor(cat Category) ConflictStrategy {
	if s, ok := p.PerCategory[cat]; ok {
		return s
	}
	if p.Default != "" {
		return p.Default
	}
	return StrategyLatestWins
}
