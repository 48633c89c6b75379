package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/storage"
)

// AssessmentCache implements storage.AssessmentCache using PostgreSQL.
// The full record is kept as a JSONB payload next to a few queryable columns.
type AssessmentCache struct {
	pool *Pool
}

// NewAssessmentCache creates a new AssessmentCache.
func NewAssessmentCache(pool *Pool) *AssessmentCache {
	return &AssessmentCache{pool: pool}
}

// Compile-time interface check.
var _ storage.AssessmentCache = (*AssessmentCache)(nil)

// Put stores r, replacing any earlier assessment of the same mint.
func (c *AssessmentCache) Put(ctx context.Context, r *domain.AssessmentRecord) (err error) {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("assessment_put", start, err) }(time.Now())

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	query := `
		INSERT INTO assessment_cache (
			mint, id, score, level, payload, assessed_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (mint) DO UPDATE SET
			id          = EXCLUDED.id,
			score       = EXCLUDED.score,
			level       = EXCLUDED.level,
			payload     = EXCLUDED.payload,
			assessed_at = EXCLUDED.assessed_at,
			expires_at  = EXCLUDED.expires_at
	`

	_, err = c.pool.Exec(ctx, query,
		r.Mint,
		r.ID,
		r.Assessment.Score,
		string(r.Assessment.Level),
		payload,
		r.AssessedAt,
		r.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put assessment: %w", err)
	}
	return nil
}

// Get returns the cached assessment if it has not expired at now.
func (c *AssessmentCache) Get(ctx context.Context, mint string, now time.Time) (_ *domain.AssessmentRecord, err error) {
	defer func(start time.Time) { observe("assessment_get", start, err) }(time.Now())

	query := `
		SELECT payload
		FROM assessment_cache
		WHERE mint = $1 AND expires_at > $2
	`

	var payload []byte
	if err = c.pool.QueryRow(ctx, query, mint, now).Scan(&payload); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	var r domain.AssessmentRecord
	if err = json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return &r, nil
}

// DeleteExpired removes entries that expired before now and returns how many were removed.
func (c *AssessmentCache) DeleteExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	defer func(start time.Time) { observe("assessment_delete_expired", start, err) }(time.Now())

	tag, err := c.pool.Exec(ctx, `DELETE FROM assessment_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired assessments: %w", err)
	}
	return tag.RowsAffected(), nil
}
