package api

import (
	"sync/atomic"
	"time"
)

// Metrics collects in-memory daemon metrics using atomic counters.
type Metrics struct {
	startTime    time.Time
	requests     atomic.Int64
	serverErrors atomic.Int64
	clientErrors atomic.Int64
	sessions     atomic.Int64
	conflicts    atomic.Int64
	queueDrains  atomic.Int64
	backups      atomic.Int64
}

// MetricsSnapshot is a point-in-time view of daemon metrics.
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Requests      int64   `json:"requests"`
	ServerErrors  int64   `json:"server_errors"`
	ClientErrors  int64   `json:"client_errors"`
	SyncSessions  int64   `json:"sync_sessions"`
	Conflicts     int64   `json:"conflicts"`
	QueueDrains   int64   `json:"queue_drains"`
	Backups       int64   `json:"backups"`
}

// NewMetrics creates a new Metrics instance with the current time as start.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest increments the total request counter.
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the server error (5xx) counter.
func (m *Metrics) RecordError() {
	m.serverErrors.Add(1)
}

// RecordClientError increments the client error (4xx) counter.
func (m *Metrics) RecordClientError() {
	m.clientErrors.Add(1)
}

// RecordSession increments the sync session counter.
func (m *Metrics) RecordSession() {
	m.sessions.Add(1)
}

// RecordConflicts adds n to the detected conflict counter.
func (m *Metrics) RecordConflicts(n int64) {
	m.conflicts.Add(n)
}

// RecordQueueDrain increments the offline-queue drain counter.
func (m *Metrics) RecordQueueDrain() {
	m.queueDrains.Add(1)
}

// RecordBackup increments the backup counter.
func (m *Metrics) RecordBackup() {
	m.backups.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Requests:      m.requests.Load(),
		ServerErrors:  m.serverErrors.Load(),
		ClientErrors:  m.clientErrors.Load(),
		SyncSessions:  m.sessions.Load(),
		Conflicts:     m.conflicts.Load(),
		QueueDrains:   m.queueDrains.Load(),
		Backups:       m.backups.Load(),
	}
}
