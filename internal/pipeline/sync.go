// Package pipeline drives the end-to-end catalog sync: fetch, normalize,
// reference stats, scoring, and batched persistence with run-status
// bookkeeping.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hollis-labs/marketscout/internal/domain"
	"github.com/hollis-labs/marketscout/internal/normalize"
	"github.com/hollis-labs/marketscout/internal/scoring"
)

const (
	// syncLockKey names the distributed lease that serializes runs.
	syncLockKey = "catalog-sync"

	// syncLockTTL bounds how long a crashed run can block the next one.
	syncLockTTL = 15 * time.Minute

	// defaultBatchSize is used when the effective config carries none.
	defaultBatchSize = 25

	// defaultRefPercentile is used when the effective config carries none.
	defaultRefPercentile = 0.90
)

// CatalogFetcher retrieves the full raw event catalog from the upstream API.
type CatalogFetcher interface {
	FetchAllEvents(ctx context.Context) ([]map[string]any, error)
}

// Stores bundles the persistence collaborators the syncer writes to.
type Stores struct {
	Markets     domain.MarketStore
	Scores      domain.ScoreStore
	Annotations domain.AnnotationStore
	Status      domain.RunStatusStore
	ScoreConfig domain.ScoreConfigStore
}

// Syncer runs one catalog sync end to end. It owns all RunStatus writes;
// the normalizer and scorer stay stateless and storage-free.
type Syncer struct {
	fetcher   CatalogFetcher
	stores    Stores
	locks     domain.LockManager
	archive   domain.BlobWriter    // optional raw-catalog archive
	snapshots domain.SnapshotCache // optional, invalidated after success
	defaults  domain.ScoreConfig
	logger    *slog.Logger
}

// NewSyncer creates a Syncer. archive and snapshots may be nil.
func NewSyncer(
	fetcher CatalogFetcher,
	stores Stores,
	locks domain.LockManager,
	archive domain.BlobWriter,
	snapshots domain.SnapshotCache,
	defaults domain.ScoreConfig,
	logger *slog.Logger,
) *Syncer {
	return &Syncer{
		fetcher:   fetcher,
		stores:    stores,
		locks:     locks,
		archive:   archive,
		snapshots: snapshots,
		defaults:  defaults,
		logger:    logger,
	}
}

// RunSync executes a single sync run. Re-running against an unchanged
// catalog is idempotent for canonical records and current scores; each run
// appends one new score-history entry per record. Batches flushed before a
// mid-run failure remain committed; the failure is recorded on RunStatus and
// returned. Returns domain.ErrLockHeld when another run is in flight.
func (s *Syncer) RunSync(ctx context.Context) (domain.RunSummary, error) {
	unlock, err := s.locks.Acquire(ctx, syncLockKey, syncLockTTL)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("pipeline: acquire run lock: %w", err)
	}
	defer unlock()

	cfg, err := s.resolveEffectiveConfig(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	startedAt := time.Now().UTC()
	if err := s.stores.Status.MarkAttempted(ctx, startedAt); err != nil {
		return domain.RunSummary{}, fmt.Errorf("pipeline: mark attempted: %w", err)
	}

	summary, err := s.run(ctx, cfg, startedAt)
	if err != nil {
		if statusErr := s.stores.Status.MarkFailed(context.WithoutCancel(ctx), err.Error()); statusErr != nil {
			s.logger.Error("failed to record run error",
				slog.String("run_error", err.Error()),
				slog.String("status_error", statusErr.Error()),
			)
		}
		return domain.RunSummary{}, err
	}
	return summary, nil
}

func (s *Syncer) run(ctx context.Context, cfg domain.ScoreConfig, startedAt time.Time) (domain.RunSummary, error) {
	events, err := s.fetcher.FetchAllEvents(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("pipeline: fetch catalog: %w", err)
	}
	s.logger.Info("fetched catalog", slog.Int("event_count", len(events)))

	records := s.normalizeAll(events, cfg)
	s.logger.Info("normalized catalog",
		slog.Int("event_count", len(events)),
		slog.Int("market_count", len(records)),
	)

	if cfg.MaxMarkets > 0 && len(records) > cfg.MaxMarkets {
		records = topByMagnitude(records, cfg.MaxMarkets)
		s.logger.Info("trimmed working set",
			slog.Int("cap", cfg.MaxMarkets),
			slog.Int("market_count", len(records)),
		)
	}

	refs := scoring.ComputeRefs(records, cfg.RefPercentile)

	s.archiveRawCatalog(ctx, startedAt, events)

	if err := s.writeBatches(ctx, records, cfg, refs); err != nil {
		return domain.RunSummary{}, err
	}

	stats := domain.RunStats{EventCount: len(events), MarketCount: len(records)}
	finishedAt := time.Now().UTC()
	if err := s.stores.Status.MarkSucceeded(ctx, finishedAt, stats, refs); err != nil {
		return domain.RunSummary{}, fmt.Errorf("pipeline: mark succeeded: %w", err)
	}

	s.invalidateSnapshots(ctx)

	s.logger.Info("sync run complete",
		slog.Int("event_count", stats.EventCount),
		slog.Int("market_count", stats.MarketCount),
		slog.Duration("elapsed", finishedAt.Sub(startedAt)),
	)

	return domain.RunSummary{
		EventCount:  stats.EventCount,
		MarketCount: stats.MarketCount,
		Refs:        refs,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}, nil
}

// resolveEffectiveConfig merges the file-based defaults with the
// externally-stored override, then backfills hard defaults for the knobs the
// pipeline cannot run without.
func (s *Syncer) resolveEffectiveConfig(ctx context.Context) (domain.ScoreConfig, error) {
	override, err := s.stores.ScoreConfig.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.ScoreConfig{}, fmt.Errorf("pipeline: load score-config override: %w", err)
	}

	cfg := domain.ResolveConfig(s.defaults, override)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.RefPercentile <= 0 || cfg.RefPercentile > 1 {
		cfg.RefPercentile = defaultRefPercentile
	}
	return cfg, nil
}

// normalizeAll flattens every parent's child markets into canonical records.
// Parents without children contribute nothing. Duplicate ids within a run
// keep their first occurrence.
func (s *Syncer) normalizeAll(events []map[string]any, cfg domain.ScoreConfig) []domain.MarketRecord {
	opts := normalize.Options{
		AllowedTags:  cfg.AllowedTagSet(),
		ExcludedTags: cfg.ExcludedTagSet(),
	}

	var records []domain.MarketRecord
	seen := make(map[string]struct{})
	for _, parent := range events {
		for i, child := range normalize.ChildRecords(parent) {
			rec := normalize.Normalize(parent, child, i, opts)
			if _, dup := seen[rec.ID]; dup {
				s.logger.Warn("dropping duplicate market id", slog.String("market_id", rec.ID))
				continue
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
		}
	}
	return records
}

// writeBatches persists records in fixed-size batches: concurrent writes
// within a batch, sequential across batches, bounding peak connections
// while overlapping I/O latency.
func (s *Syncer) writeBatches(ctx context.Context, records []domain.MarketRecord, cfg domain.ScoreConfig, refs domain.ReferenceStats) error {
	now := time.Now().UTC()

	for start := 0; start < len(records); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, rec := range records[start:end] {
			g.Go(func() error {
				return s.writeRecord(gctx, rec, cfg, refs, now)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("pipeline: write batch at offset %d: %w", start, err)
		}
	}
	return nil
}

// writeRecord performs the per-record persistence sequence: canonical
// upsert, current-score overwrite, immutable history append, and an
// annotation placeholder that never clobbers analyst state.
func (s *Syncer) writeRecord(ctx context.Context, rec domain.MarketRecord, cfg domain.ScoreConfig, refs domain.ReferenceStats, now time.Time) error {
	if err := s.stores.Markets.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert market %s: %w", rec.ID, err)
	}

	score := scoring.Score(rec, cfg, refs, now)
	score.ComputedAt = now

	if err := s.stores.Scores.Upsert(ctx, score); err != nil {
		return fmt.Errorf("upsert score %s: %w", rec.ID, err)
	}
	if err := s.stores.Scores.AppendHistory(ctx, score); err != nil {
		return fmt.Errorf("append score history %s: %w", rec.ID, err)
	}
	if err := s.stores.Annotations.EnsureExists(ctx, rec.ID); err != nil {
		return fmt.Errorf("ensure annotation %s: %w", rec.ID, err)
	}
	return nil
}

// archiveRawCatalog writes the raw event snapshot to blob storage for audit.
// Archival is best-effort: a blob outage must not abort scoring.
func (s *Syncer) archiveRawCatalog(ctx context.Context, startedAt time.Time, events []map[string]any) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		s.logger.Warn("marshal raw catalog snapshot failed", slog.String("error", err.Error()))
		return
	}
	path := fmt.Sprintf("catalog/%s.json", startedAt.Format("2006-01-02T15-04-05Z"))
	if err := s.archive.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		s.logger.Warn("archive raw catalog snapshot failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("archived raw catalog snapshot",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)
}

func (s *Syncer) invalidateSnapshots(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Invalidate(ctx, "browse"); err != nil {
		s.logger.Warn("invalidate browse snapshots failed", slog.String("error", err.Error()))
	}
}

// topByMagnitude returns the n records that rank highest under the
// deterministic tie-break: liquidity desc, then 24h volume desc, then open
// interest desc, then id asc so equal records order reproducibly.
func topByMagnitude(records []domain.MarketRecord, n int) []domain.MarketRecord {
	sorted := make([]domain.MarketRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]
		if a.Liquidity != b.Liquidity {
			return a.Liquidity > b.Liquidity
		}
		if a.Volume24h != b.Volume24h {
			return a.Volume24h > b.Volume24h
		}
		if a.OpenInterest != b.OpenInterest {
			return a.OpenInterest > b.OpenInterest
		}
		return a.ID < b.ID
	})
	return sorted[:n]
}
