package report

import (
	"context"
	"sync"

	"laudo/pkg/platform/sentinel"
)

// MemoryStore is the in-process report store. It enforces the same protocol
// uniqueness the Postgres constraint does, so orchestrator tests exercise
// the 409 path faithfully.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []Report
	byProto map[string]int
}

func NewMemory() *MemoryStore {
	return &MemoryStore{byProto: make(map[string]int)}
}

func (s *MemoryStore) Create(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Protocol != "" {
		if _, exists := s.byProto[r.Protocol]; exists {
			return sentinel.ErrConflict
		}
		s.byProto[r.Protocol] = len(s.reports)
	}
	s.reports = append(s.reports, *r)
	return nil
}

func (s *MemoryStore) ExistsByProtocol(ctx context.Context, protocol string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byProto[protocol]
	return ok, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Report, 0, min(limit, len(s.reports)))
	for i := len(s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.reports[i])
	}
	return out, nil
}

func (s *MemoryStore) ListByInstitution(ctx context.Context, cnpj string, limit int) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Report, 0, limit)
	for i := len(s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if s.reports[i].SenderCNPJ == cnpj {
			out = append(out, s.reports[i])
		}
	}
	return out, nil
}
