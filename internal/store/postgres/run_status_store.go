package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// RunStatusStore implements domain.RunStatusStore using PostgreSQL. The
// record is a singleton keyed to id = 1, seeded by the initial migration.
type RunStatusStore struct {
	pool *pgxpool.Pool
}

var _ domain.RunStatusStore = (*RunStatusStore)(nil)

// NewRunStatusStore creates a new RunStatusStore backed by the given
// connection pool.
func NewRunStatusStore(pool *pgxpool.Pool) *RunStatusStore {
	return &RunStatusStore{pool: pool}
}

// Get returns the singleton run status. A missing row reads as an empty
// status rather than an error, so a fresh database reports "never run".
func (s *RunStatusStore) Get(ctx context.Context) (domain.RunStatus, error) {
	var st domain.RunStatus
	var stats, refs []byte
	err := s.pool.QueryRow(ctx,
		`SELECT last_attempted_at, last_succeeded_at, last_error, last_stats, last_refs
		 FROM run_status WHERE id = 1`,
	).Scan(&st.LastAttemptedAt, &st.LastSucceededAt, &st.LastError, &stats, &refs)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.RunStatus{}, nil
		}
		return domain.RunStatus{}, fmt.Errorf("postgres: get run status: %w", err)
	}
	if len(stats) > 0 {
		st.LastStats = &domain.RunStats{}
		if err := json.Unmarshal(stats, st.LastStats); err != nil {
			return domain.RunStatus{}, fmt.Errorf("postgres: unmarshal run stats: %w", err)
		}
	}
	if len(refs) > 0 {
		st.LastRefs = &domain.ReferenceStats{}
		if err := json.Unmarshal(refs, st.LastRefs); err != nil {
			return domain.RunStatus{}, fmt.Errorf("postgres: unmarshal run refs: %w", err)
		}
	}
	return st, nil
}

// MarkAttempted records the start of a run and clears the previous error.
// Success fields from the prior run are preserved.
func (s *RunStatusStore) MarkAttempted(ctx context.Context, at time.Time) error {
	const query = `
		INSERT INTO run_status (id, last_attempted_at, last_error)
		VALUES (1, $1, '')
		ON CONFLICT (id) DO UPDATE SET
			last_attempted_at = EXCLUDED.last_attempted_at,
			last_error        = ''`

	if _, err := s.pool.Exec(ctx, query, at); err != nil {
		return fmt.Errorf("postgres: mark run attempted: %w", err)
	}
	return nil
}

// MarkSucceeded records a successful run with its stats and reference values.
func (s *RunStatusStore) MarkSucceeded(ctx context.Context, at time.Time, stats domain.RunStats, refs domain.ReferenceStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("postgres: marshal run stats: %w", err)
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("postgres: marshal run refs: %w", err)
	}

	const query = `
		INSERT INTO run_status (id, last_succeeded_at, last_error, last_stats, last_refs)
		VALUES (1, $1, '', $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			last_succeeded_at = EXCLUDED.last_succeeded_at,
			last_error        = '',
			last_stats        = EXCLUDED.last_stats,
			last_refs         = EXCLUDED.last_refs`

	if _, err := s.pool.Exec(ctx, query, at, statsJSON, refsJSON); err != nil {
		return fmt.Errorf("postgres: mark run succeeded: %w", err)
	}
	return nil
}

// MarkFailed records a run failure. The last success timestamp, stats, and
// refs are preserved so consumers can still see the most recent good run.
func (s *RunStatusStore) MarkFailed(ctx context.Context, errMsg string) error {
	const query = `
		INSERT INTO run_status (id, last_error)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET
			last_error = EXCLUDED.last_error`

	if _, err := s.pool.Exec(ctx, query, errMsg); err != nil {
		return fmt.Errorf("postgres: mark run failed: %w", err)
	}
	return nil
}
