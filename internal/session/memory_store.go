package session

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory session store for demo/development mode.
type MemoryStore struct {
	sessions map[string]*State
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*State)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if state.IsExpired() {
		return nil, ErrExpired
	}
	cp := *state
	cp.Cart = append([]CartItem(nil), state.Cart...)
	return &cp, nil
}

func (m *MemoryStore) Put(ctx context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *state
	cp.Cart = append([]CartItem(nil), state.Cart...)
	cp.UpdatedAt = time.Now()
	m.sessions[state.ID] = &cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int
	for id, state := range m.sessions {
		if !state.ExpiresAt.IsZero() && state.ExpiresAt.Before(cutoff) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}
