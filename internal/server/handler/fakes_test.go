package handler

import (
	"context"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

type fakeMarketStore struct {
	records map[string]domain.MarketRecord
	err     error
}

func (s *fakeMarketStore) Upsert(ctx context.Context, rec domain.MarketRecord) error { return s.err }

func (s *fakeMarketStore) GetByID(ctx context.Context, id string) (domain.MarketRecord, error) {
	if s.err != nil {
		return domain.MarketRecord{}, s.err
	}
	rec, ok := s.records[id]
	if !ok {
		return domain.MarketRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *fakeMarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.MarketRecord, error) {
	return nil, nil
}

func (s *fakeMarketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.records)), nil
}

type fakeScoreStore struct {
	current map[string]domain.ScoreResult
	history map[string][]domain.ScoreResult
}

func (s *fakeScoreStore) Upsert(ctx context.Context, score domain.ScoreResult) error { return nil }

func (s *fakeScoreStore) GetByMarketID(ctx context.Context, marketID string) (domain.ScoreResult, error) {
	score, ok := s.current[marketID]
	if !ok {
		return domain.ScoreResult{}, domain.ErrNotFound
	}
	return score, nil
}

func (s *fakeScoreStore) AppendHistory(ctx context.Context, score domain.ScoreResult) error {
	return nil
}

func (s *fakeScoreStore) ListHistory(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ScoreResult, error) {
	return s.history[marketID], nil
}

type fakeAnnotationStore struct {
	annotations map[string]domain.Annotation
}

func (s *fakeAnnotationStore) EnsureExists(ctx context.Context, marketID string) error { return nil }

func (s *fakeAnnotationStore) GetByMarketID(ctx context.Context, marketID string) (domain.Annotation, error) {
	ann, ok := s.annotations[marketID]
	if !ok {
		return domain.Annotation{}, domain.ErrNotFound
	}
	return ann, nil
}

func (s *fakeAnnotationStore) Update(ctx context.Context, ann domain.Annotation) error {
	if _, ok := s.annotations[ann.MarketID]; !ok {
		return domain.ErrNotFound
	}
	ann.UpdatedAt = time.Now().UTC()
	s.annotations[ann.MarketID] = ann
	return nil
}

type fakeRunStatusStore struct {
	status domain.RunStatus
	err    error
}

func (s *fakeRunStatusStore) Get(ctx context.Context) (domain.RunStatus, error) {
	return s.status, s.err
}

func (s *fakeRunStatusStore) MarkAttempted(ctx context.Context, at time.Time) error { return nil }

func (s *fakeRunStatusStore) MarkSucceeded(ctx context.Context, at time.Time, stats domain.RunStats, refs domain.ReferenceStats) error {
	return nil
}

func (s *fakeRunStatusStore) MarkFailed(ctx context.Context, errMsg string) error { return nil }

type fakeScoreConfigStore struct {
	override *domain.ScoreConfigOverride
	putCalls int
	err      error
}

func (s *fakeScoreConfigStore) Get(ctx context.Context) (*domain.ScoreConfigOverride, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.override == nil {
		return nil, domain.ErrNotFound
	}
	return s.override, nil
}

func (s *fakeScoreConfigStore) Put(ctx context.Context, override domain.ScoreConfigOverride) error {
	if s.err != nil {
		return s.err
	}
	s.override = &override
	s.putCalls++
	return nil
}

type fakeBrowseReader struct {
	rows     []domain.BrowseRow
	lastOpts domain.ListOpts
	calls    int
	err      error
}

func (b *fakeBrowseReader) Browse(ctx context.Context, opts domain.ListOpts) ([]domain.BrowseRow, error) {
	b.lastOpts = opts
	b.calls++
	return b.rows, b.err
}

type fakeSnapshotCache struct {
	entries map[string][]byte
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{entries: make(map[string][]byte)}
}

func (c *fakeSnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (c *fakeSnapshotCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.entries[key] = data
	return nil
}

func (c *fakeSnapshotCache) Invalidate(ctx context.Context, prefix string) error {
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}

type fakeTrigger struct {
	queued bool
	calls  int
}

func (t *fakeTrigger) Trigger() bool {
	t.calls++
	return t.queued
}
