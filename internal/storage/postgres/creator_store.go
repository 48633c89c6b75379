package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/storage"
)

// CreatorStore implements storage.CreatorStore using PostgreSQL.
type CreatorStore struct {
	pool *Pool
}

// NewCreatorStore creates a new CreatorStore.
func NewCreatorStore(pool *Pool) *CreatorStore {
	return &CreatorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreatorStore = (*CreatorStore)(nil)

// Upsert inserts or replaces the record for r.Address.
func (s *CreatorStore) Upsert(ctx context.Context, r *domain.CreatorRecord) (err error) {
	if r == nil || r.Address == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("creator_upsert", start, err) }(time.Now())

	query := `
		INSERT INTO creator_reputation (
			address, first_seen_at, tokens_created, rugged_tokens, created_mints, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			first_seen_at  = EXCLUDED.first_seen_at,
			tokens_created = EXCLUDED.tokens_created,
			rugged_tokens  = EXCLUDED.rugged_tokens,
			created_mints  = EXCLUDED.created_mints,
			fetched_at     = EXCLUDED.fetched_at,
			updated_at     = now()
	`

	mints := r.CreatedMints
	if mints == nil {
		mints = []string{}
	}

	_, err = s.pool.Exec(ctx, query,
		r.Address,
		r.FirstSeenAt,
		r.TokensCreated,
		r.RuggedTokens,
		mints,
		r.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert creator: %w", err)
	}
	return nil
}

// Get retrieves a record by address. Returns ErrNotFound if not exists.
func (s *CreatorStore) Get(ctx context.Context, address string) (_ *domain.CreatorRecord, err error) {
	defer func(start time.Time) { observe("creator_get", start, err) }(time.Now())

	query := `
		SELECT address, first_seen_at, tokens_created, rugged_tokens, created_mints, fetched_at
		FROM creator_reputation
		WHERE address = $1
	`

	r, err := scanCreator(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get creator: %w", err)
	}
	return r, nil
}

func scanCreator(row pgx.Row) (*domain.CreatorRecord, error) {
	var r domain.CreatorRecord
	err := row.Scan(
		&r.Address,
		&r.FirstSeenAt,
		&r.TokensCreated,
		&r.RuggedTokens,
		&r.CreatedMints,
		&r.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
