package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory StateStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Load returns the stored state.
func (s *MemoryStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateFromValues(s.values), nil
}

// Save overwrites the stored state.
func (s *MemoryStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range st.values() {
		s.values[k] = v
	}
	return nil
}

// Clear removes the stored state.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.values = make(map[string]string)
	s.mu.Unlock()
	return nil
}
