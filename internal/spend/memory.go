package spend

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store. Totals do not survive a restart
// and are not shared across instances, so the cap is per process.
type MemoryStore struct {
	mu     sync.Mutex
	totals map[string]float64
}

// NewMemoryStore creates an in-memory spend store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		totals: make(map[string]float64),
	}
}

func (s *MemoryStore) Get(_ context.Context, day string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[day], nil
}

func (s *MemoryStore) Add(_ context.Context, day string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[day] += amount
	return nil
}
