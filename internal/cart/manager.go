package cart

import (
	"context"
	"sync"
)

const keyPrefix = "cart:"

// Manager hands out one Store per session key. Stores are created lazily and
// restored from storage on first use.
type Manager struct {
	storage Storage

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a manager backed by the given storage.
func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
		stores:  make(map[string]*Store),
	}
}

// Get returns the cart store for the session, restoring persisted state the
// first time the session is seen.
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[sessionID]; ok {
		return store
	}

	store := NewStore(keyPrefix+sessionID, m.storage)
	store.Restore(ctx)
	m.stores[sessionID] = store
	return store
}
