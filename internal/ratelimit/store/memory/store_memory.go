// Package memory provides the in-process rate limit store: a mutex-guarded
// map of per-source window counters and block timestamps. State is
// process-lifetime only; use the redis store when limits must be shared.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count        int
	windowStart  time.Time
	blockedUntil *time.Time
}

// Store implements ratelimit.Store in memory.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) IsBlocked(ctx context.Context, sourceID string, now time.Time) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[sourceID]
	if e == nil || e.blockedUntil == nil {
		return 0, false, nil
	}
	if !now.Before(*e.blockedUntil) {
		e.blockedUntil = nil
		return 0, false, nil
	}
	return e.blockedUntil.Sub(now), true, nil
}

func (s *Store) Increment(ctx context.Context, sourceID string, now time.Time, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[sourceID]
	if e == nil {
		e = &entry{windowStart: now}
		s.entries[sourceID] = e
	}
	// Fixed window: restart once the window has fully elapsed.
	if now.Sub(e.windowStart) > window {
		e.count = 0
		e.windowStart = now
	}
	e.count++
	return e.count, e.windowStart, nil
}

func (s *Store) SetBlock(ctx context.Context, sourceID string, now time.Time, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[sourceID]
	if e == nil {
		e = &entry{windowStart: now}
		s.entries[sourceID] = e
	}
	until := now.Add(d)
	e.blockedUntil = &until
	return nil
}

// Len returns the number of tracked sources. Used by tests and debug endpoints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
