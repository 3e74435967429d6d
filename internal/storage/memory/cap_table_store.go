package memory

import (
	"context"
	"sync"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/storage"
)

// CapTableStore is an in-memory implementation of storage.CapTableStore.
type CapTableStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.CapTable // keyed by company id
}

// NewCapTableStore creates a new in-memory cap table store.
func NewCapTableStore() *CapTableStore {
	return &CapTableStore{
		data: make(map[int64]*domain.CapTable),
	}
}

// SaveCapTable stores a snapshot. Returns ErrDuplicateKey if the company exists.
func (s *CapTableStore) SaveCapTable(_ context.Context, ct *domain.CapTable) error {
	if ct == nil || ct.Company.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[ct.Company.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[ct.Company.ID] = ct.Clone()
	return nil
}

// LoadCapTable returns a copy of the company's snapshot. Returns ErrNotFound if not exists.
func (s *CapTableStore) LoadCapTable(_ context.Context, companyID int64) (*domain.CapTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ct, exists := s.data[companyID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return ct.Clone(), nil
}

var _ storage.CapTableStore = (*CapTableStore)(nil)
