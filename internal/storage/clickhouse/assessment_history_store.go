package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/storage"
)

// AssessmentHistoryStore implements storage.AssessmentHistoryStore using ClickHouse.
// Summary columns support aggregation; the full record is kept as a JSON payload.
type AssessmentHistoryStore struct {
	conn *Conn
}

// NewAssessmentHistoryStore creates a new AssessmentHistoryStore.
func NewAssessmentHistoryStore(conn *Conn) *AssessmentHistoryStore {
	return &AssessmentHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AssessmentHistoryStore = (*AssessmentHistoryStore)(nil)

// Append adds a record. Returns ErrDuplicateKey if the ID exists.
func (s *AssessmentHistoryStore) Append(ctx context.Context, r *domain.AssessmentRecord) (err error) {
	if r == nil || r.ID == "" || r.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("history_append", start, err) }(time.Now())

	// MergeTree does not enforce keys.
	exists, err := s.exists(ctx, r.Mint, r.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	query := `
		INSERT INTO assessment_history (
			id, mint, score, level, creator_address,
			bundle_detected, bundle_confidence, bundle_wallets, wash_percent,
			flag_count, payload, assessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		r.ID,
		r.Mint,
		int32(r.Assessment.Score),
		string(r.Assessment.Level),
		r.CreatorAddress,
		r.BundleDetected,
		r.BundleConf.String(),
		int32(r.BundleWallets),
		r.WashPercent,
		int32(len(r.Assessment.Flags)),
		string(payload),
		r.AssessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert assessment history: %w", err)
	}
	return nil
}

// ListByMint returns up to limit records for mint, newest first.
// A non-positive limit returns all records.
func (s *AssessmentHistoryStore) ListByMint(ctx context.Context, mint string, limit int) (_ []*domain.AssessmentRecord, err error) {
	defer func(start time.Time) { observe("history_list", start, err) }(time.Now())

	query := `
		SELECT payload
		FROM assessment_history
		WHERE mint = ?
		ORDER BY assessed_at DESC, id DESC
	`
	args := []any{mint}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assessment history: %w", err)
	}
	defer rows.Close()

	var result []*domain.AssessmentRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan assessment history: %w", err)
		}
		var r domain.AssessmentRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("unmarshal assessment: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessment history: %w", err)
	}
	return result, nil
}

// LevelCount is the number of assessments with a given level.
type LevelCount struct {
	Level domain.RiskLevel
	Count uint64
}

// CountByLevel aggregates assessments per risk level since the given time.
func (s *AssessmentHistoryStore) CountByLevel(ctx context.Context, since time.Time) (_ []LevelCount, err error) {
	defer func(start time.Time) { observe("history_count_by_level", start, err) }(time.Now())

	query := `
		SELECT level, count() AS n
		FROM assessment_history
		WHERE assessed_at >= ?
		GROUP BY level
		ORDER BY level
	`

	rows, err := s.conn.Query(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("count by level: %w", err)
	}
	defer rows.Close()

	var out []LevelCount
	for rows.Next() {
		var level string
		var n uint64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		out = append(out, LevelCount{Level: domain.RiskLevel(level), Count: n})
	}
	return out, rows.Err()
}

func (s *AssessmentHistoryStore) exists(ctx context.Context, mint, id string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM assessment_history WHERE mint = ? AND id = ?`, mint, id,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
