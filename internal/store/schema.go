package store

// EngineSchemaVersion is the current engine database schema version
const EngineSchemaVersion = 1

const engineSchema = `
-- Registered devices
CREATE TABLE IF NOT EXISTS devices (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    capabilities JSON NOT NULL,
    last_sync_at DATETIME,
    is_online INTEGER NOT NULL DEFAULT 0,
    registered_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_devices_user ON devices(user_id);

-- Per-user sync preferences
CREATE TABLE IF NOT EXISTS preferences (
    user_id TEXT PRIMARY KEY,
    data JSON NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Offline queue items, drained in per-category enqueue order
CREATE TABLE IF NOT EXISTS queue_items (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    user_id TEXT NOT NULL,
    device_id TEXT NOT NULL,
    category TEXT NOT NULL,
    action TEXT NOT NULL,
    payload JSON NOT NULL,
    retries INTEGER NOT NULL DEFAULT 0,
    max_retries INTEGER NOT NULL DEFAULT 3,
    depends_on JSON NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'pending',
    enqueued_at DATETIME NOT NULL,
    last_attempt DATETIME,
    last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_queue_device ON queue_items(device_id, status);

-- Pending conflicts awaiting resolution
CREATE TABLE IF NOT EXISTS conflicts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    category TEXT NOT NULL,
    source JSON NOT NULL,
    target JSON NOT NULL,
    resolution JSON,
    auto_resolved INTEGER NOT NULL DEFAULT 0,
    detected_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conflicts_user ON conflicts(user_id);

-- Backup metadata; payloads live in the blob store
CREATE TABLE IF NOT EXISTS backups (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL,
    size_bytes INTEGER NOT NULL,
    compressed INTEGER NOT NULL DEFAULT 0,
    encrypted INTEGER NOT NULL DEFAULT 0,
    checksum TEXT NOT NULL,
    verified INTEGER NOT NULL DEFAULT 0,
    verified_at DATETIME,
    blob_key TEXT NOT NULL,
    categories JSON NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backups_user ON backups(user_id, created_at);

-- Per-device current values, one row per category
CREATE TABLE IF NOT EXISTS device_data (
    device_id TEXT NOT NULL,
    category TEXT NOT NULL,
    payload JSON NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    checksum TEXT NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (device_id, category)
);
`

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations lists schema changes beyond the base schema, in order.
var Migrations = []Migration{}
