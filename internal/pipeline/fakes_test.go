package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// In-memory fakes of the pipeline's collaborators. All of them are
// goroutine-safe because batch writes run concurrently.

type fakeFetcher struct {
	events []map[string]any
	err    error
}

func (f *fakeFetcher) FetchAllEvents(ctx context.Context) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeMarketStore struct {
	mu      sync.Mutex
	records map[string]domain.MarketRecord
	err     error
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{records: make(map[string]domain.MarketRecord)}
}

func (s *fakeMarketStore) Upsert(ctx context.Context, rec domain.MarketRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeMarketStore) GetByID(ctx context.Context, id string) (domain.MarketRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

type fakeScoreStore struct {
	mu      sync.Mutex
	current map[string]domain.ScoreResult
	history map[string][]domain.ScoreResult
}

func newFakeScoreStore() *fakeScoreStore {
	return &fakeScoreStore{
		current: make(map[string]domain.ScoreResult),
		history: make(map[string][]domain.ScoreResult),
	}
}

func (s *fakeScoreStore) Upsert(ctx context.Context, score domain.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[score.MarketID] = score
	return nil
}

func (s *fakeScoreStore) GetByMarketID(ctx context.Context, marketID string) (domain.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.current[marketID]
	if !ok {
		return domain.ScoreResult{}, domain.ErrNotFound
	}
	return score, nil
}

func (s *fakeScoreStore) AppendHistory(ctx context.Context, score domain.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[score.MarketID] = append(s.history[score.MarketID], score)
	return nil
}

func (s *fakeScoreStore) ListHistory(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ScoreResult(nil), s.history[marketID]...), nil
}

type fakeAnnotationStore struct {
	mu          sync.Mutex
	annotations map[string]domain.Annotation
	err         error
}

func newFakeAnnotationStore() *fakeAnnotationStore {
	return &fakeAnnotationStore{annotations: make(map[string]domain.Annotation)}
}

func (s *fakeAnnotationStore) EnsureExists(ctx context.Context, marketID string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annotations[marketID]; ok {
		return nil
	}
	s.annotations[marketID] = domain.Annotation{MarketID: marketID, State: domain.AnnotationStateNew}
	return nil
}

func (s *fakeAnnotationStore) GetByMarketID(ctx context.Context, marketID string) (domain.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ann, ok := s.annotations[marketID]
	if !ok {
		return domain.Annotation{}, domain.ErrNotFound
	}
	return ann, nil
}

func (s *fakeAnnotationStore) Update(ctx context.Context, ann domain.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annotations[ann.MarketID]; !ok {
		return domain.ErrNotFound
	}
	s.annotations[ann.MarketID] = ann
	return nil
}

type fakeRunStatusStore struct {
	mu     sync.Mutex
	status domain.RunStatus
}

func (s *fakeRunStatusStore) Get(ctx context.Context) (domain.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, nil
}

func (s *fakeRunStatusStore) MarkAttempted(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastAttemptedAt = &at
	s.status.LastError = ""
	return nil
}

func (s *fakeRunStatusStore) MarkSucceeded(ctx context.Context, at time.Time, stats domain.RunStats, refs domain.ReferenceStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastSucceededAt = &at
	s.status.LastError = ""
	s.status.LastStats = &stats
	s.status.LastRefs = &refs
	return nil
}

func (s *fakeRunStatusStore) MarkFailed(ctx context.Context, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastError = errMsg
	return nil
}

type fakeScoreConfigStore struct {
	mu       sync.Mutex
	override *domain.ScoreConfigOverride
	err      error
}

func (s *fakeScoreConfigStore) Get(ctx context.Context) (*domain.ScoreConfigOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.override == nil {
		return nil, domain.ErrNotFound
	}
	return s.override, nil
}

func (s *fakeScoreConfigStore) Put(ctx context.Context, override domain.ScoreConfigOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = &override
	return nil
}

type fakeLockManager struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int
}

func (l *fakeLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	l.acquires++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.releases++
	}, nil
}

type fakeBlobWriter struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func newFakeBlobWriter() *fakeBlobWriter {
	return &fakeBlobWriter{blobs: make(map[string][]byte)}
}

func (w *fakeBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blobs[path] = b
	return nil
}

type fakeSnapshotCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{entries: make(map[string][]byte)}
}

func (c *fakeSnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (c *fakeSnapshotCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *fakeSnapshotCache) Invalidate(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}
