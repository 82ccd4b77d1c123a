// Package recency collapses redundant dashboard fetches that arrive within a
// cooldown of the last successful one.
package recency

import (
	"context"
	"sync"
	"time"
)

// Store persists the last successful fetch time per key.
type Store interface {
	// LastSuccess returns the recorded time, or ok=false when there is none.
	LastSuccess(ctx context.Context, key string) (at time.Time, ok bool, err error)
	SetLastSuccess(ctx context.Context, key string, at time.Time) error
	Clear(ctx context.Context, key string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]time.Time)}
}

func (s *MemoryStore) LastSuccess(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.records[key]
	return at, ok, nil
}

func (s *MemoryStore) SetLastSuccess(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	s.records[key] = at
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}
