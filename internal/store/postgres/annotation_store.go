package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// AnnotationStore implements domain.AnnotationStore using PostgreSQL.
type AnnotationStore struct {
	pool *pgxpool.Pool
}

var _ domain.AnnotationStore = (*AnnotationStore)(nil)

// NewAnnotationStore creates a new AnnotationStore backed by the given
// connection pool.
func NewAnnotationStore(pool *pgxpool.Pool) *AnnotationStore {
	return &AnnotationStore{pool: pool}
}

// EnsureExists creates an empty placeholder annotation for a market when none
// exists. Existing rows are left untouched so analyst state survives re-syncs.
func (s *AnnotationStore) EnsureExists(ctx context.Context, marketID string) error {
	const query = `
		INSERT INTO market_annotations (market_id, state, notes, updated_at)
		VALUES ($1, $2, '', NOW())
		ON CONFLICT (market_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, marketID, domain.AnnotationStateNew)
	if err != nil {
		return fmt.Errorf("postgres: ensure annotation %s: %w", marketID, err)
	}
	return nil
}

// GetByMarketID retrieves the annotation for a market.
func (s *AnnotationStore) GetByMarketID(ctx context.Context, marketID string) (domain.Annotation, error) {
	var a domain.Annotation
	err := s.pool.QueryRow(ctx,
		`SELECT market_id, state, notes, updated_at FROM market_annotations WHERE market_id = $1`,
		marketID,
	).Scan(&a.MarketID, &a.State, &a.Notes, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Annotation{}, domain.ErrNotFound
		}
		return domain.Annotation{}, fmt.Errorf("postgres: get annotation %s: %w", marketID, err)
	}
	return a, nil
}

// Update overwrites the analyst-owned state and notes of an existing
// annotation. Returns domain.ErrNotFound when no row exists for the market.
func (s *AnnotationStore) Update(ctx context.Context, ann domain.Annotation) error {
	const query = `
		UPDATE market_annotations
		SET state = $2, notes = $3, updated_at = NOW()
		WHERE market_id = $1`

	tag, err := s.pool.Exec(ctx, query, ann.MarketID, ann.State, ann.Notes)
	if err != nil {
		return fmt.Errorf("postgres: update annotation %s: %w", ann.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
