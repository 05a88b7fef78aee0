package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

var _ domain.MarketStore = (*MarketStore)(nil)

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Upsert inserts or updates a single canonical market record. Re-syncing an
// unchanged catalog leaves the row equivalent apart from updated_at.
func (s *MarketStore) Upsert(ctx context.Context, m domain.MarketRecord) error {
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return fmt.Errorf("postgres: marshal tags for %s: %w", m.ID, err)
	}
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("postgres: marshal outcomes for %s: %w", m.ID, err)
	}
	var raw []byte
	if m.RawPayload != nil {
		raw, err = json.Marshal(m.RawPayload)
		if err != nil {
			return fmt.Errorf("postgres: marshal raw payload for %s: %w", m.ID, err)
		}
	}

	const query = `
		INSERT INTO markets (
			id, parent_id, slug, question, description,
			resolution_source, end_date,
			liquidity, volume_24h, open_interest,
			has_liquidity_field, has_volume_field, has_open_interest_field,
			has_resolution_source_field, has_end_date_field,
			tags, outcomes, is_multi_outcome,
			restricted, has_allowed_tag, is_excluded, market_url,
			raw_payload, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15,
			$16, $17, $18,
			$19, $20, $21, $22,
			$23, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			parent_id                   = EXCLUDED.parent_id,
			slug                        = EXCLUDED.slug,
			question                    = EXCLUDED.question,
			description                 = EXCLUDED.description,
			resolution_source           = EXCLUDED.resolution_source,
			end_date                    = EXCLUDED.end_date,
			liquidity                   = EXCLUDED.liquidity,
			volume_24h                  = EXCLUDED.volume_24h,
			open_interest               = EXCLUDED.open_interest,
			has_liquidity_field         = EXCLUDED.has_liquidity_field,
			has_volume_field            = EXCLUDED.has_volume_field,
			has_open_interest_field     = EXCLUDED.has_open_interest_field,
			has_resolution_source_field = EXCLUDED.has_resolution_source_field,
			has_end_date_field          = EXCLUDED.has_end_date_field,
			tags                        = EXCLUDED.tags,
			outcomes                    = EXCLUDED.outcomes,
			is_multi_outcome            = EXCLUDED.is_multi_outcome,
			restricted                  = EXCLUDED.restricted,
			has_allowed_tag             = EXCLUDED.has_allowed_tag,
			is_excluded                 = EXCLUDED.is_excluded,
			market_url                  = EXCLUDED.market_url,
			raw_payload                 = EXCLUDED.raw_payload,
			updated_at                  = NOW()`

	_, err = s.pool.Exec(ctx, query,
		m.ID, m.ParentID, m.Slug, m.Question, m.Description,
		m.ResolutionSource, m.EndDate,
		m.Liquidity, m.Volume24h, m.OpenInterest,
		m.HasLiquidityField, m.HasVolumeField, m.HasOpenInterestField,
		m.HasResolutionSourceField, m.HasEndDateField,
		tags, outcomes, m.IsMultiOutcome,
		m.Restricted, m.HasAllowedTag, m.IsExcluded, m.MarketURL,
		raw,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

const marketCols = `id, parent_id, slug, question, description,
	resolution_source, end_date,
	liquidity, volume_24h, open_interest,
	has_liquidity_field, has_volume_field, has_open_interest_field,
	has_resolution_source_field, has_end_date_field,
	tags, outcomes, is_multi_outcome,
	restricted, has_allowed_tag, is_excluded, market_url, raw_payload`

// scanMarket scans a single market row into a domain.MarketRecord.
func scanMarket(row pgx.Row) (domain.MarketRecord, error) {
	var m domain.MarketRecord
	var tags, outcomes, raw []byte
	err := row.Scan(
		&m.ID, &m.ParentID, &m.Slug, &m.Question, &m.Description,
		&m.ResolutionSource, &m.EndDate,
		&m.Liquidity, &m.Volume24h, &m.OpenInterest,
		&m.HasLiquidityField, &m.HasVolumeField, &m.HasOpenInterestField,
		&m.HasResolutionSourceField, &m.HasEndDateField,
		&tags, &outcomes, &m.IsMultiOutcome,
		&m.Restricted, &m.HasAllowedTag, &m.IsExcluded, &m.MarketURL,
		&raw,
	)
	if err != nil {
		return domain.MarketRecord{}, err
	}
	if err := json.Unmarshal(tags, &m.Tags); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(outcomes, &m.Outcomes); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m.RawPayload); err != nil {
			return domain.MarketRecord{}, fmt.Errorf("unmarshal raw payload: %w", err)
		}
	}
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.MarketRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.MarketRecord{}, domain.ErrNotFound
		}
		return domain.MarketRecord{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets with pagination and optional tag filtering, ordered by
// updated_at descending.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.MarketRecord, error) {
	query := `SELECT ` + marketCols + ` FROM markets`
	args := []any{}
	argIdx := 1

	if opts.Tag != "" {
		query += fmt.Sprintf(` WHERE tags @> $%d`, argIdx)
		tagFilter, err := json.Marshal([]map[string]string{{"slug": opts.Tag}})
		if err != nil {
			return nil, fmt.Errorf("postgres: marshal tag filter: %w", err)
		}
		args = append(args, tagFilter)
		argIdx++
	}

	query += " ORDER BY updated_at DESC"

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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.MarketRecord
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}
