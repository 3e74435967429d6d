package memory

import (
	"context"
	"sort"
	"sync"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// PayoutStore is an in-memory implementation of storage.PayoutStore.
type PayoutStore struct {
	mu   sync.RWMutex
	data map[int64][]*domain.LiquidationPayout // keyed by scenario id
}

// NewPayoutStore creates a new in-memory payout store.
func NewPayoutStore() *PayoutStore {
	return &PayoutStore{
		data: make(map[int64][]*domain.LiquidationPayout),
	}
}

// ReplaceForScenario swaps the scenario's payout set under a single lock.
// Validation happens before the old set is touched, so a rejected batch
// leaves it in place.
func (s *PayoutStore) ReplaceForScenario(_ context.Context, scenarioID int64, payouts []*domain.LiquidationPayout) error {
	if scenarioID == 0 {
		return storage.ErrInvalidInput
	}

	seen := make(map[string]struct{}, len(payouts))
	replacement := make([]*domain.LiquidationPayout, 0, len(payouts))
	for _, p := range payouts {
		if p == nil || p.ID == "" || p.LiquidationScenarioID != scenarioID {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[p.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.ID] = struct{}{}

		pCopy := *p
		replacement = append(replacement, &pCopy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(replacement) == 0 {
		delete(s.data, scenarioID)
		return nil
	}
	s.data[scenarioID] = replacement
	return nil
}

// GetByScenarioID retrieves payouts of a scenario, ordered by investor id, security type, security id ASC.
func (s *PayoutStore) GetByScenarioID(_ context.Context, scenarioID int64) ([]*domain.LiquidationPayout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[scenarioID]
	result := make([]*domain.LiquidationPayout, 0, len(stored))
	for _, p := range stored {
		pCopy := *p
		result = append(result, &pCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CompanyInvestorID != result[j].CompanyInvestorID {
			return result[i].CompanyInvestorID < result[j].CompanyInvestorID
		}
		if result[i].SecurityType != result[j].SecurityType {
			return result[i].SecurityType < result[j].SecurityType
		}
		return result[i].SecurityID < result[j].SecurityID
	})

	return result, nil
}

var _ storage.PayoutStore = (*PayoutStore)(nil)
