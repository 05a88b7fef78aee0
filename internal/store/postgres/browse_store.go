package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// BrowseStore implements domain.BrowseReader using PostgreSQL: a single
// left-joined query over markets, current scores, and annotations, ordered by
// score descending so unscored markets sort last.
type BrowseStore struct {
	pool *pgxpool.Pool
}

var _ domain.BrowseReader = (*BrowseStore)(nil)

// NewBrowseStore creates a new BrowseStore backed by the given connection
// pool.
func NewBrowseStore(pool *pgxpool.Pool) *BrowseStore {
	return &BrowseStore{pool: pool}
}

// Browse returns the joined browse rows matching opts.
func (s *BrowseStore) Browse(ctx context.Context, opts domain.ListOpts) ([]domain.BrowseRow, error) {
	query := `
		SELECT
			m.id, m.parent_id, m.slug, m.question, m.description,
			m.resolution_source, m.end_date,
			m.liquidity, m.volume_24h, m.open_interest,
			m.has_liquidity_field, m.has_volume_field, m.has_open_interest_field,
			m.has_resolution_source_field, m.has_end_date_field,
			m.tags, m.outcomes, m.is_multi_outcome,
			m.restricted, m.has_allowed_tag, m.is_excluded, m.market_url,
			s.total_score, s.components, s.flags, s.score_version,
			s.liquidity_ref, s.volume_24h_ref, s.open_interest_ref, s.computed_at,
			a.state, a.notes, a.updated_at
		FROM markets m
		LEFT JOIN market_scores s ON s.market_id = m.id
		LEFT JOIN market_annotations a ON a.market_id = m.id`

	var conds []string
	args := []any{}
	argIdx := 1

	if opts.MinScore > 0 {
		conds = append(conds, fmt.Sprintf("s.total_score >= $%d", argIdx))
		args = append(args, opts.MinScore)
		argIdx++
	}
	if opts.Tag != "" {
		tagFilter, err := json.Marshal([]map[string]string{{"slug": opts.Tag}})
		if err != nil {
			return nil, fmt.Errorf("postgres: marshal tag filter: %w", err)
		}
		conds = append(conds, fmt.Sprintf("m.tags @> $%d", argIdx))
		args = append(args, tagFilter)
		argIdx++
	}
	if opts.State != "" {
		conds = append(conds, fmt.Sprintf("a.state = $%d", argIdx))
		args = append(args, opts.State)
		argIdx++
	}

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += " ORDER BY s.total_score DESC NULLS LAST, m.id ASC"

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
		return nil, fmt.Errorf("postgres: browse markets: %w", err)
	}
	defer rows.Close()

	var results []domain.BrowseRow
	for rows.Next() {
		row, err := scanBrowseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan browse row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: browse rows: %w", err)
	}
	return results, nil
}

type browseScanner interface {
	Scan(dest ...any) error
}

func scanBrowseRow(row browseScanner) (domain.BrowseRow, error) {
	var (
		m        domain.MarketRecord
		tags     []byte
		outcomes []byte

		totalScore   *float64
		components   []byte
		flags        []byte
		scoreVersion *string
		liqRef       *float64
		volRef       *float64
		oiRef        *float64
		computedAt   *time.Time

		state     *string
		notes     *string
		updatedAt *time.Time
	)

	err := row.Scan(
		&m.ID, &m.ParentID, &m.Slug, &m.Question, &m.Description,
		&m.ResolutionSource, &m.EndDate,
		&m.Liquidity, &m.Volume24h, &m.OpenInterest,
		&m.HasLiquidityField, &m.HasVolumeField, &m.HasOpenInterestField,
		&m.HasResolutionSourceField, &m.HasEndDateField,
		&tags, &outcomes, &m.IsMultiOutcome,
		&m.Restricted, &m.HasAllowedTag, &m.IsExcluded, &m.MarketURL,
		&totalScore, &components, &flags, &scoreVersion,
		&liqRef, &volRef, &oiRef, &computedAt,
		&state, &notes, &updatedAt,
	)
	if err != nil {
		return domain.BrowseRow{}, err
	}
	if err := json.Unmarshal(tags, &m.Tags); err != nil {
		return domain.BrowseRow{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(outcomes, &m.Outcomes); err != nil {
		return domain.BrowseRow{}, fmt.Errorf("unmarshal outcomes: %w", err)
	}

	out := domain.BrowseRow{Record: m}

	if totalScore != nil {
		sc := &domain.ScoreResult{
			MarketID:   m.ID,
			TotalScore: *totalScore,
		}
		if scoreVersion != nil {
			sc.ScoreVersion = *scoreVersion
		}
		if liqRef != nil {
			sc.Refs.LiquidityRef = *liqRef
		}
		if volRef != nil {
			sc.Refs.Volume24hRef = *volRef
		}
		if oiRef != nil {
			sc.Refs.OpenInterestRef = *oiRef
		}
		if computedAt != nil {
			sc.ComputedAt = *computedAt
		}
		if len(components) > 0 {
			if err := json.Unmarshal(components, &sc.Components); err != nil {
				return domain.BrowseRow{}, fmt.Errorf("unmarshal components: %w", err)
			}
		}
		if len(flags) > 0 {
			if err := json.Unmarshal(flags, &sc.Flags); err != nil {
				return domain.BrowseRow{}, fmt.Errorf("unmarshal flags: %w", err)
			}
		}
		out.Score = sc
	}

	if state != nil {
		ann := &domain.Annotation{
			MarketID: m.ID,
			State:    *state,
		}
		if notes != nil {
			ann.Notes = *notes
		}
		if updatedAt != nil {
			ann.UpdatedAt = *updatedAt
		}
		out.Annotation = ann
	}

	return out, nil
}
