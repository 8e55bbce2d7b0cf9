package memory

import (
	"context"
	"sync"

	"timed-quiz-service/internal/domain"
)

// ResultStore is an in-memory append-only attempt log (tests, demo mode).
type ResultStore struct {
	mu      sync.RWMutex
	records []domain.AttemptRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Append(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *ResultStore) QueryAll(_ context.Context) ([]domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *ResultStore) QueryByUser(_ context.Context, user string) ([]domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptRecord, 0)
	for _, r := range s.records {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out, nil
}
