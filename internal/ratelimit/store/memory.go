package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

// Memory is the single-instance fallback used when Redis is not configured,
// and the test double. Expired entries are dropped lazily on access.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry

	// Now is swappable in tests.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		Now:     time.Now,
	}
}

func (s *Memory) live(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if s.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		e = &entry{expiresAt: s.Now().Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *Memory) SetBlock(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{count: 1, expiresAt: s.Now().Add(ttl)}
	return nil
}

func (s *Memory) IsBlocked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key) != nil, nil
}

func (s *Memory) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}
