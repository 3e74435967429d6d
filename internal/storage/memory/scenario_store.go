package memory

import (
	"context"
	"sort"
	"sync"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// ScenarioStore is an in-memory implementation of storage.ScenarioStore.
type ScenarioStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.LiquidationScenario
}

// NewScenarioStore creates a new in-memory scenario store.
func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{
		data: make(map[int64]*domain.LiquidationScenario),
	}
}

// Insert adds a new scenario. Returns ErrDuplicateKey if the id exists.
func (s *ScenarioStore) Insert(_ context.Context, sc *domain.LiquidationScenario) error {
	if sc == nil || sc.ID == 0 || sc.CompanyID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sc.ID]; exists {
		return storage.ErrDuplicateKey
	}

	scCopy := *sc
	if scCopy.Status == "" {
		scCopy.Status = domain.ScenarioStatusDraft
	}
	s.data[sc.ID] = &scCopy
	return nil
}

// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByID(_ context.Context, scenarioID int64) (*domain.LiquidationScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, exists := s.data[scenarioID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	scCopy := *sc
	return &scCopy, nil
}

// GetByCompanyID retrieves all scenarios of a company, ordered by id ASC.
func (s *ScenarioStore) GetByCompanyID(_ context.Context, companyID int64) ([]*domain.LiquidationScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidationScenario
	for _, sc := range s.data {
		if sc.CompanyID == companyID {
			scCopy := *sc
			result = append(result, &scCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpdateStatus changes the scenario status. Returns ErrNotFound if not exists.
func (s *ScenarioStore) UpdateStatus(_ context.Context, scenarioID int64, status domain.ScenarioStatus) error {
	if status != domain.ScenarioStatusDraft && status != domain.ScenarioStatusFinal {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, exists := s.data[scenarioID]
	if !exists {
		return storage.ErrNotFound
	}
	sc.Status = status
	return nil
}

var _ storage.ScenarioStore = (*ScenarioStore)(nil)
