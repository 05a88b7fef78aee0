package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-labs/marketscout/internal/domain"
)

type syncFixture struct {
	fetcher     *fakeFetcher
	markets     *fakeMarketStore
	scores      *fakeScoreStore
	annotations *fakeAnnotationStore
	status      *fakeRunStatusStore
	scoreConfig *fakeScoreConfigStore
	locks       *fakeLockManager
	archive     *fakeBlobWriter
	snapshots   *fakeSnapshotCache
	syncer      *Syncer
}

func newSyncFixture(events []map[string]any) *syncFixture {
	f := &syncFixture{
		fetcher:     &fakeFetcher{events: events},
		markets:     newFakeMarketStore(),
		scores:      newFakeScoreStore(),
		annotations: newFakeAnnotationStore(),
		status:      &fakeRunStatusStore{},
		scoreConfig: &fakeScoreConfigStore{},
		locks:       &fakeLockManager{},
		archive:     newFakeBlobWriter(),
		snapshots:   newFakeSnapshotCache(),
	}
	f.syncer = NewSyncer(
		f.fetcher,
		Stores{
			Markets:     f.markets,
			Scores:      f.scores,
			Annotations: f.annotations,
			Status:      f.status,
			ScoreConfig: f.scoreConfig,
		},
		f.locks,
		f.archive,
		f.snapshots,
		testDefaults(),
		slog.New(slog.DiscardHandler),
	)
	return f
}

func testDefaults() domain.ScoreConfig {
	return domain.ScoreConfig{
		Weights: domain.ScoreWeights{
			ResolutionIntegrity:     25,
			LiquidityMicrostructure: 25,
			Modelability:            20,
			ParticipationQuality:    15,
			StrategicFit:            15,
		},
		Penalties:     domain.ScorePenalties{Restricted: -10, MissingTags: -5, ShortHorizon: -15},
		Thresholds:    domain.ScoreThresholds{MinLiquidity: 1000, MinVolume24h: 500, MinOpenInterest: 1000, MinHorizonDays: 3},
		Sectors:       map[string][]string{"politics": {"politics"}},
		ExcludedTags:  []string{"sports"},
		RefPercentile: 0.90,
		BatchSize:     2,
		ScoreVersion:  "v1",
	}
}

func catalogEvent(id string, markets ...map[string]any) map[string]any {
	list := make([]any, 0, len(markets))
	for _, m := range markets {
		list = append(list, m)
	}
	return map[string]any{"id": id, "slug": id, "markets": list}
}

func market(id string, liquidity float64) map[string]any {
	return map[string]any{
		"id":            id,
		"slug":          id,
		"question":      "Q " + id,
		"liquidity":     liquidity,
		"volume24hr":    liquidity / 2,
		"endDate":       "2027-06-01T00:00:00Z",
		"tags":          []any{"politics"},
		"outcomes":      []any{"Yes", "No"},
		"outcomePrices": []any{"0.5", "0.5"},
	}
}

func TestRunSyncHappyPath(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100), market("m2", 200), market("m3", 300)),
		catalogEvent("ev-2", market("m4", 400)),
	})

	summary, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.EventCount)
	assert.Equal(t, 4, summary.MarketCount)
	assert.Len(t, f.markets.records, 4)
	assert.Len(t, f.scores.current, 4)
	assert.Len(t, f.annotations.annotations, 4)

	for id := range f.markets.records {
		assert.Len(t, f.scores.history[id], 1, "one history entry for %s", id)
	}

	// RunStatus reflects a successful run.
	status, err := f.status.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastAttemptedAt)
	require.NotNil(t, status.LastSucceededAt)
	require.NotNil(t, status.LastStats)
	assert.Equal(t, 4, status.LastStats.MarketCount)
	assert.Empty(t, status.LastError)

	// Lock released, raw catalog archived, browse snapshots invalidated.
	assert.Equal(t, 1, f.locks.releases)
	assert.Len(t, f.archive.blobs, 1)
	assert.Equal(t, []string{"browse"}, f.snapshots.invalidated)
}

func TestRunSyncIdempotentRerun(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})

	_, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)
	_, err = f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	// Canonical record and current score stay single; history grows by one
	// entry per run.
	assert.Len(t, f.markets.records, 1)
	assert.Len(t, f.scores.current, 1)
	assert.Len(t, f.scores.history["m1"], 2)
	assert.Len(t, f.annotations.annotations, 1)
}

func TestRunSyncPreservesAnnotationState(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})

	_, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.annotations.Update(context.Background(), domain.Annotation{
		MarketID: "m1", State: "shortlist", Notes: "worth a look",
	}))

	_, err = f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	ann, err := f.annotations.GetByMarketID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "shortlist", ann.State)
	assert.Equal(t, "worth a look", ann.Notes)
}

func TestRunSyncLockHeld(t *testing.T) {
	f := newSyncFixture(nil)
	f.locks.held = true

	_, err := f.syncer.RunSync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// A lock-held skip writes no status at all.
	status, _ := f.status.Get(context.Background())
	assert.Nil(t, status.LastAttemptedAt)
	assert.Empty(t, status.LastError)
}

func TestRunSyncFetchFailure(t *testing.T) {
	f := newSyncFixture(nil)
	f.fetcher.err = errors.New("gamma is down")

	_, err := f.syncer.RunSync(context.Background())
	require.Error(t, err)

	status, _ := f.status.Get(context.Background())
	require.NotNil(t, status.LastAttemptedAt)
	assert.Nil(t, status.LastSucceededAt)
	assert.Contains(t, status.LastError, "gamma is down")

	// The lock is released even on failure.
	assert.Equal(t, 1, f.locks.releases)
	assert.Empty(t, f.snapshots.invalidated)
}

func TestRunSyncWriteFailureKeepsCommittedBatches(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})
	f.annotations.err = errors.New("annotations table gone")

	_, err := f.syncer.RunSync(context.Background())
	require.Error(t, err)

	// Writes ahead of the failing step remain committed.
	assert.Len(t, f.markets.records, 1)
	status, _ := f.status.Get(context.Background())
	assert.Contains(t, status.LastError, "annotations table gone")
	assert.Equal(t, 1, f.locks.releases)
}

func TestRunSyncFailureThenRecovery(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})
	f.fetcher.err = errors.New("transient")

	_, err := f.syncer.RunSync(context.Background())
	require.Error(t, err)

	f.fetcher.err = nil
	_, err = f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	// A successful run clears the previous error.
	status, _ := f.status.Get(context.Background())
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.LastSucceededAt)
}

func TestRunSyncArchiveOutageDoesNotAbort(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})
	f.archive.err = errors.New("bucket unreachable")

	_, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.scores.current, 1)
}

func TestRunSyncWithoutArchiveAndSnapshots(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})
	f.syncer.archive = nil
	f.syncer.snapshots = nil

	_, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)
}

func TestRunSyncDuplicateIDsDropped(t *testing.T) {
	first := market("m1", 100)
	first["question"] = "first occurrence"
	second := market("m1", 999)
	second["question"] = "second occurrence"

	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", first),
		catalogEvent("ev-2", second),
	})

	summary, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MarketCount)
	rec, err := f.markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "first occurrence", rec.Question)
	assert.Len(t, f.scores.history["m1"], 1)
}

func TestRunSyncAppliesOverride(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})
	version := "v2"
	f.scoreConfig.override = &domain.ScoreConfigOverride{ScoreVersion: &version}

	_, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	score, err := f.scores.GetByMarketID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "v2", score.ScoreVersion)
}

func TestRunSyncOverrideLoadFailure(t *testing.T) {
	f := newSyncFixture(nil)
	f.scoreConfig.err = errors.New("pg connection refused")

	_, err := f.syncer.RunSync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score-config override")
}

func TestRunSyncMaxMarketsTrim(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1",
			market("m1", 100),
			market("m2", 500),
			market("m3", 300),
			market("m4", 500),
		),
	})
	maxMarkets := 2
	f.scoreConfig.override = &domain.ScoreConfigOverride{MaxMarkets: &maxMarkets}

	summary, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)

	// The two highest-liquidity markets survive the trim.
	assert.Equal(t, 2, summary.MarketCount)
	assert.Len(t, f.markets.records, 2)
	_, err = f.markets.GetByID(context.Background(), "m2")
	assert.NoError(t, err)
	_, err = f.markets.GetByID(context.Background(), "m4")
	assert.NoError(t, err)
}

func TestTopByMagnitudeDeterminism(t *testing.T) {
	records := []domain.MarketRecord{
		{ID: "d", Liquidity: 10, Volume24h: 5},
		{ID: "b", Liquidity: 10, Volume24h: 9},
		{ID: "c", Liquidity: 10, Volume24h: 9, OpenInterest: 3},
		{ID: "a", Liquidity: 20},
	}

	got := topByMagnitude(records, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "b", got[2].ID)

	// The input order is preserved.
	assert.Equal(t, "d", records[0].ID)
}

func TestRunSyncBatchSizeBackfill(t *testing.T) {
	f := newSyncFixture([]map[string]any{
		catalogEvent("ev-1", market("m1", 100)),
	})
	f.syncer.defaults.BatchSize = 0
	f.syncer.defaults.RefPercentile = 0

	_, err := f.syncer.RunSync(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.scores.current, 1)
}
