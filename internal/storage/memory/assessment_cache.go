package memory

import (
	"context"
	"sync"
	"time"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/storage"
)

// AssessmentCache is an in-memory implementation of storage.AssessmentCache.
type AssessmentCache struct {
	mu     sync.RWMutex
	byMint map[string]*domain.AssessmentRecord
}

// NewAssessmentCache creates a new in-memory assessment cache.
func NewAssessmentCache() *AssessmentCache {
	return &AssessmentCache{byMint: make(map[string]*domain.AssessmentRecord)}
}

// Put stores r, replacing any earlier assessment of the same mint.
func (c *AssessmentCache) Put(_ context.Context, r *domain.AssessmentRecord) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.byMint[r.Mint] = copyRecord(r)
	return nil
}

// Get returns the cached assessment if it has not expired at now.
// Expired entries are evicted.
func (c *AssessmentCache) Get(_ context.Context, mint string, now time.Time) (*domain.AssessmentRecord, error) {
	c.mu.RLock()
	r, ok := c.byMint[mint]
	c.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}

	if !now.Before(r.ExpiresAt) {
		c.mu.Lock()
		if cur, ok := c.byMint[mint]; ok && cur == r {
			delete(c.byMint, mint)
		}
		c.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// Len returns the number of cached entries, expired or not.
func (c *AssessmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byMint)
}

func copyRecord(r *domain.AssessmentRecord) *domain.AssessmentRecord {
	c := *r
	c.Assessment.Flags = append([]domain.Flag(nil), r.Assessment.Flags...)
	c.DegradedSignals = append([]string(nil), r.DegradedSignals...)
	c.Holders = append([]domain.HolderRecord(nil), r.Holders...)
	if r.Wash != nil {
		w := *r.Wash
		c.Wash = &w
	}
	return &c
}

var _ storage.AssessmentCache = (*AssessmentCache)(nil)
