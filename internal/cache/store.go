package cache

import (
	"context"
	"sync"
	"time"

	"MarketLens/internal/model"
)

// Entry is one cached fetch result. It is never mutated after it is stored.
type Entry struct {
	Series    map[string]*model.Series `json:"series"`
	FetchedAt time.Time                `json:"fetched_at"`
}

// Store holds entries by normalized request key. Implementations must make Put
// atomic: a concurrent Get sees the previous entry or the new one, never a partial one.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Put(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) error
	// Evict deletes key only while it still holds the entry fetched at fetchedAt,
	// so a lookup that saw a stale entry cannot drop one stored after it.
	Evict(ctx context.Context, key string, fetchedAt time.Time) error
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, e *Entry) error {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Evict(_ context.Context, key string, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.FetchedAt.Equal(fetchedAt) {
		delete(s.entries, key)
	}
	return nil
}

// Len reports the number of stored entries, live or stale.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
