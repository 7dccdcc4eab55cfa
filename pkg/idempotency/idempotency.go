// Package idempotency reserves request keys so a replayed request can be
// recognized and refused.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a reserved key is remembered.
const DefaultTTL = 24 * time.Hour

// Store reserves keys. Implementations must be safe for concurrent use.
type Store interface {
	// Reserve claims key. It returns false when the key is already held.
	Reserve(ctx context.Context, key string) (bool, error)
	// Release frees key so the request may be retried.
	Release(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store that remembers keys for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Reserve implements Store.
func (s *MemoryStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.entries[key]; ok && now.Sub(at) < s.ttl {
		return false, nil
	}
	s.entries[key] = now
	return true, nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
