package storage

import (
	"context"
	"time"

	"solana-token-risk/internal/domain"
)

// CreatorStore memoizes deployer rug history keyed by wallet address.
type CreatorStore interface {
	// Upsert inserts or replaces the record for r.Address.
	Upsert(ctx context.Context, r *domain.CreatorRecord) error

	// Get retrieves a record by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.CreatorRecord, error)
}

// AssessmentCache holds the latest assessment per mint until it expires.
type AssessmentCache interface {
	// Put stores r, replacing any earlier assessment of the same mint.
	Put(ctx context.Context, r *domain.AssessmentRecord) error

	// Get returns the cached assessment if it has not expired at now.
	// Returns ErrNotFound if missing or expired.
	Get(ctx context.Context, mint string, now time.Time) (*domain.AssessmentRecord, error)
}

// AssessmentHistoryStore is an append-only log of completed assessments.
type AssessmentHistoryStore interface {
	// Append adds a record. Returns ErrDuplicateKey if the ID exists.
	Append(ctx context.Context, r *domain.AssessmentRecord) error

	// ListByMint returns up to limit records for mint, newest first.
	ListByMint(ctx context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error)
}
