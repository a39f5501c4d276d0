package notification

import (
	"context"
	"sync"
)

// MemorySink collects notifications in-process for tests and local runs.
type MemorySink struct {
	mu            sync.RWMutex
	notifications []Notification
}

func NewMemory() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Create(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

// All returns created notifications in order. Test helper.
func (s *MemorySink) All() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}
