package memory

import (
	"context"
	"sort"
	"sync"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// RunSummaryStore is an in-memory implementation of storage.RunSummaryStore.
type RunSummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run id
}

// NewRunSummaryStore creates a new in-memory run summary store.
func NewRunSummaryStore() *RunSummaryStore {
	return &RunSummaryStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// Insert appends a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(_ context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	rCopy := *r
	s.data[r.RunID] = &rCopy
	return nil
}

// GetByScenarioID retrieves run summaries of a scenario, ordered by computed_at ASC.
func (s *RunSummaryStore) GetByScenarioID(_ context.Context, scenarioID int64) ([]*domain.RunSummary, error) {
	return s.filter(func(r *domain.RunSummary) bool { return r.ScenarioID == scenarioID }), nil
}

// GetByCompanyID retrieves run summaries of a company, ordered by computed_at ASC.
func (s *RunSummaryStore) GetByCompanyID(_ context.Context, companyID int64) ([]*domain.RunSummary, error) {
	return s.filter(func(r *domain.RunSummary) bool { return r.CompanyID == companyID }), nil
}

func (s *RunSummaryStore) filter(keep func(*domain.RunSummary) bool) []*domain.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunSummary
	for _, r := range s.data {
		if keep(r) {
			rCopy := *r
			result = append(result, &rCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ComputedAt.Equal(result[j].ComputedAt) {
			return result[i].ComputedAt.Before(result[j].ComputedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	return result
}

var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)
