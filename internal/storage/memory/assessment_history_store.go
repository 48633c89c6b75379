package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/storage"
)

// AssessmentHistoryStore is an in-memory implementation of storage.AssessmentHistoryStore.
type AssessmentHistoryStore struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	byMint map[string][]*domain.AssessmentRecord
}

// NewAssessmentHistoryStore creates a new in-memory history store.
func NewAssessmentHistoryStore() *AssessmentHistoryStore {
	return &AssessmentHistoryStore{
		ids:    make(map[string]struct{}),
		byMint: make(map[string][]*domain.AssessmentRecord),
	}
}

// Append adds a record. Returns ErrDuplicateKey if the ID exists.
func (s *AssessmentHistoryStore) Append(_ context.Context, r *domain.AssessmentRecord) error {
	if r == nil || r.ID == "" || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[r.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.ids[r.ID] = struct{}{}
	s.byMint[r.Mint] = append(s.byMint[r.Mint], copyRecord(r))
	return nil
}

// ListByMint returns up to limit records for mint, newest first.
// A non-positive limit returns all records.
func (s *AssessmentHistoryStore) ListByMint(_ context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byMint[mint]
	result := make([]*domain.AssessmentRecord, 0, len(records))
	for _, r := range records {
		result = append(result, copyRecord(r))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AssessedAt.After(result[j].AssessedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.AssessmentHistoryStore = (*AssessmentHistoryStore)(nil)
