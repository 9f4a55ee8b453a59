// Package ratelimit provides the sliding fixed-window counters used to
// throttle login attempts per source address. The store is an interface so
// a single-instance deployment can run on process memory while a
// multi-instance deployment shares counters through Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore increments a windowed counter and reports the new count.
// The first increment of a window starts the window; once it elapses the
// counter resets to zero.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type record struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore. Slight races under extreme
// concurrency are tolerated; the mutex keeps counts consistent enough for a
// single instance.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// NewMemoryStore builds an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record), now: time.Now}
}

// Increment bumps the counter for key inside the current window.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || now.After(rec.expiresAt) {
		rec = &record{count: 0, expiresAt: now.Add(window)}
		s.records[key] = rec
	}
	rec.count++
	return rec.count, nil
}

// Sweep removes expired records; callers run it periodically to bound
// memory on long-lived processes.
func (s *MemoryStore) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.records {
		if now.After(rec.expiresAt) {
			delete(s.records, key)
		}
	}
}
