package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process denylist for development and tests. Entries
// expire lazily on read and eagerly via a background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry

	done      chan struct{}
	closeOnce sync.Once
}

const sweepInterval = time.Minute

// NewMemoryStore starts an in-memory denylist with a background sweeper.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) sweep() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-t.C:
			s.mu.Lock()
			for k, exp := range s.entries {
				if !exp.After(now) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Put records key as revoked for ttl. A non-positive ttl is a no-op.
func (s *MemoryStore) Put(_ context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.entries[key] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// Exists reports whether key is currently revoked.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if !exp.After(now) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

// ExistsAny reports whether any of keys is currently revoked.
func (s *MemoryStore) ExistsAny(ctx context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		ok, err := s.Exists(ctx, k)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
