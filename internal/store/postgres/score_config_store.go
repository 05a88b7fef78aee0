package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// ScoreConfigStore implements domain.ScoreConfigStore using PostgreSQL. The
// override is stored as a single JSONB document keyed to id = 1; an absent
// row means no override is in force.
type ScoreConfigStore struct {
	pool *pgxpool.Pool
}

var _ domain.ScoreConfigStore = (*ScoreConfigStore)(nil)

// NewScoreConfigStore creates a new ScoreConfigStore backed by the given
// connection pool.
func NewScoreConfigStore(pool *pgxpool.Pool) *ScoreConfigStore {
	return &ScoreConfigStore{pool: pool}
}

// Get returns the stored override, or domain.ErrNotFound when none exists.
func (s *ScoreConfigStore) Get(ctx context.Context) (*domain.ScoreConfigOverride, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT override FROM score_config WHERE id = 1`,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get score config: %w", err)
	}

	var override domain.ScoreConfigOverride
	if err := json.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal score config: %w", err)
	}
	return &override, nil
}

// Put stores or replaces the override document.
func (s *ScoreConfigStore) Put(ctx context.Context, override domain.ScoreConfigOverride) error {
	raw, err := json.Marshal(override)
	if err != nil {
		return fmt.Errorf("postgres: marshal score config: %w", err)
	}

	const query = `
		INSERT INTO score_config (id, override, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			override   = EXCLUDED.override,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("postgres: put score config: %w", err)
	}
	return nil
}
