package engine

import (
	"sync"

	"github.com/brewlab/brewsync/internal/models"
)

// DefaultHistorySize bounds how many finished sessions the engine keeps.
const DefaultHistorySize = 64

// History is a fixed-size ring of finished sessions, newest first on read.
type History struct {
	mu       sync.Mutex
	sessions []models.SyncSession
	next     int
	size     int
}

// NewHistory creates a history holding at most n sessions.
func NewHistory(n int) *History {
	if n < 1 {
		n = DefaultHistorySize
	}
	return &History{sessions: make([]models.SyncSession, n)}
}

// Add records a finished session, evicting the oldest when full.
func (h *History) Add(s models.SyncSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[h.next] = s
	h.next = (h.next + 1) % len(h.sessions)
	if h.size < len(h.sessions) {
		h.size++
	}
}

// ForUser returns a user's finished sessions, newest first.
func (h *History) ForUser(userID string) []models.SyncSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []models.SyncSession
	for i := 1; i <= h.size; i++ {
		idx := (h.next - i + len(h.sessions)) % len(h.sessions)
		if h.sessions[idx].UserID == userID {
			out = append(out, h.sessions[idx])
		}
	}
	return out
}
