package memory

import (
	"context"
	"sync"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/storage"
)

// CreatorStore is an in-memory implementation of storage.CreatorStore.
type CreatorStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CreatorRecord
}

// NewCreatorStore creates a new in-memory creator store.
func NewCreatorStore() *CreatorStore {
	return &CreatorStore{data: make(map[string]*domain.CreatorRecord)}
}

// Upsert inserts or replaces the record for r.Address.
func (s *CreatorStore) Upsert(_ context.Context, r *domain.CreatorRecord) error {
	if r == nil || r.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[r.Address] = copyCreator(r)
	return nil
}

// Get retrieves a record by address. Returns ErrNotFound if not exists.
func (s *CreatorStore) Get(_ context.Context, address string) (*domain.CreatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyCreator(r), nil
}

func copyCreator(r *domain.CreatorRecord) *domain.CreatorRecord {
	c := *r
	c.CreatedMints = append([]string(nil), r.CreatedMints...)
	if r.FirstSeenAt != nil {
		t := *r.FirstSeenAt
		c.FirstSeenAt = &t
	}
	return &c
}

var _ storage.CreatorStore = (*CreatorStore)(nil)
