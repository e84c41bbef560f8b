package collector

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/brewlab/brewsync/internal/models"
)

// MemoryStore is an in-memory CategoryStore, used in tests and as the
// default wiring when no external collaborator is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]json.RawMessage)}
}

// Get returns the stored payload for a user, or nil.
func (m *MemoryStore) Get(_ context.Context, userID string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[userID], nil
}

// Set replaces the stored payload for a user.
func (m *MemoryStore) Set(_ context.Context, userID string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = payload
	return nil
}

// MemoryStores returns a Stores map with an independent in-memory store
// per category.
func MemoryStores() Stores {
	s := make(Stores)
	for _, cat := range models.AllCategories() {
		s[cat] = NewMemoryStore()
	}
	return s
}
