package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// ScoreStore implements domain.ScoreStore using PostgreSQL. The current score
// lives in market_scores (one row per market, overwritten each run); the
// audit trail lives in market_score_history (append-only).
type ScoreStore struct {
	pool *pgxpool.Pool
}

var _ domain.ScoreStore = (*ScoreStore)(nil)

// NewScoreStore creates a new ScoreStore backed by the given connection pool.
func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

func marshalScoreParts(score domain.ScoreResult) (components, flags []byte, err error) {
	comp := score.Components
	if comp == nil {
		comp = map[string]float64{}
	}
	components, err = json.Marshal(comp)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal components: %w", err)
	}
	fl := score.Flags
	if fl == nil {
		fl = []string{}
	}
	flags, err = json.Marshal(fl)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal flags: %w", err)
	}
	return components, flags, nil
}

// Upsert overwrites the current score for a market.
func (s *ScoreStore) Upsert(ctx context.Context, score domain.ScoreResult) error {
	components, flags, err := marshalScoreParts(score)
	if err != nil {
		return fmt.Errorf("postgres: score %s: %w", score.MarketID, err)
	}

	const query = `
		INSERT INTO market_scores (
			market_id, total_score, components, flags, score_version,
			liquidity_ref, volume_24h_ref, open_interest_ref,
			computed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			total_score       = EXCLUDED.total_score,
			components        = EXCLUDED.components,
			flags             = EXCLUDED.flags,
			score_version     = EXCLUDED.score_version,
			liquidity_ref     = EXCLUDED.liquidity_ref,
			volume_24h_ref    = EXCLUDED.volume_24h_ref,
			open_interest_ref = EXCLUDED.open_interest_ref,
			computed_at       = EXCLUDED.computed_at,
			updated_at        = NOW()`

	_, err = s.pool.Exec(ctx, query,
		score.MarketID, score.TotalScore, components, flags, score.ScoreVersion,
		score.Refs.LiquidityRef, score.Refs.Volume24hRef, score.Refs.OpenInterestRef,
		score.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert score %s: %w", score.MarketID, err)
	}
	return nil
}

const scoreCols = `market_id, total_score, components, flags, score_version,
	liquidity_ref, volume_24h_ref, open_interest_ref, computed_at`

// scanScore scans a single score row into a domain.ScoreResult.
func scanScore(row pgx.Row) (domain.ScoreResult, error) {
	var sc domain.ScoreResult
	var components, flags []byte
	err := row.Scan(
		&sc.MarketID, &sc.TotalScore, &components, &flags, &sc.ScoreVersion,
		&sc.Refs.LiquidityRef, &sc.Refs.Volume24hRef, &sc.Refs.OpenInterestRef,
		&sc.ComputedAt,
	)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if err := json.Unmarshal(components, &sc.Components); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("unmarshal components: %w", err)
	}
	if err := json.Unmarshal(flags, &sc.Flags); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("unmarshal flags: %w", err)
	}
	return sc, nil
}

// GetByMarketID retrieves the current score for a market.
func (s *ScoreStore) GetByMarketID(ctx context.Context, marketID string) (domain.ScoreResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+scoreCols+` FROM market_scores WHERE market_id = $1`, marketID)
	sc, err := scanScore(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ScoreResult{}, domain.ErrNotFound
		}
		return domain.ScoreResult{}, fmt.Errorf("postgres: get score %s: %w", marketID, err)
	}
	return sc, nil
}

// AppendHistory inserts a new history row. History rows are never updated or
// deleted, forming the score-over-time audit trail.
func (s *ScoreStore) AppendHistory(ctx context.Context, score domain.ScoreResult) error {
	components, flags, err := marshalScoreParts(score)
	if err != nil {
		return fmt.Errorf("postgres: score history %s: %w", score.MarketID, err)
	}

	const query = `
		INSERT INTO market_score_history (
			market_id, total_score, components, flags, score_version,
			liquidity_ref, volume_24h_ref, open_interest_ref, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.pool.Exec(ctx, query,
		score.MarketID, score.TotalScore, components, flags, score.ScoreVersion,
		score.Refs.LiquidityRef, score.Refs.Volume24hRef, score.Refs.OpenInterestRef,
		score.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append score history %s: %w", score.MarketID, err)
	}
	return nil
}

// ListHistory returns history entries for a market, newest first.
func (s *ScoreStore) ListHistory(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ScoreResult, error) {
	query := `SELECT ` + scoreCols + ` FROM market_score_history WHERE market_id = $1 ORDER BY computed_at DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list score history %s: %w", marketID, err)
	}
	defer rows.Close()

	var results []domain.ScoreResult
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan score history: %w", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list score history rows: %w", err)
	}
	return results, nil
}
