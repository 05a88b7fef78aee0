package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-labs/marketscout/internal/domain"
)

func testConfig() domain.ScoreConfig {
	return domain.ScoreConfig{
		Weights: domain.ScoreWeights{
			ResolutionIntegrity:     25,
			LiquidityMicrostructure: 25,
			Modelability:            20,
			ParticipationQuality:    15,
			StrategicFit:            15,
		},
		Penalties: domain.ScorePenalties{
			Restricted:   -10,
			MissingTags:  -5,
			ShortHorizon: -15,
		},
		Thresholds: domain.ScoreThresholds{
			MinLiquidity:    1000,
			MinVolume24h:    500,
			MinOpenInterest: 1000,
			MinHorizonDays:  3,
		},
		RefPercentile: 0.90,
		ScoreVersion:  "v1",
	}
}

func testRefs() domain.ReferenceStats {
	return domain.ReferenceStats{
		LiquidityRef:    10000,
		Volume24hRef:    5000,
		OpenInterestRef: 8000,
	}
}

func fullCreditRecord(now time.Time) domain.MarketRecord {
	end := now.Add(90 * 24 * time.Hour)
	return domain.MarketRecord{
		ID:               "mkt-full",
		ResolutionSource: "https://example.org",
		EndDate:          &end,
		Liquidity:        10000,
		Volume24h:        5000,
		OpenInterest:     8000,
		Tags:             []domain.Tag{{Slug: "politics", DisplayName: "Politics"}},
		HasAllowedTag:    true,

		HasLiquidityField:        true,
		HasVolumeField:           true,
		HasOpenInterestField:     true,
		HasResolutionSourceField: true,
		HasEndDateField:          true,
	}
}

func TestScoreFullCredit(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	result := Score(fullCreditRecord(now), testConfig(), testRefs(), now)

	assert.InDelta(t, 100.0, result.TotalScore, 1e-9)
	assert.InDelta(t, 25.0, result.Components[ComponentResolutionIntegrity], 1e-9)
	assert.InDelta(t, 25.0, result.Components[ComponentLiquidityMicrostructure], 1e-9)
	assert.InDelta(t, 20.0, result.Components[ComponentModelability], 1e-9)
	assert.InDelta(t, 15.0, result.Components[ComponentParticipationQuality], 1e-9)
	assert.InDelta(t, 15.0, result.Components[ComponentStrategicFit], 1e-9)
	assert.Zero(t, result.Components[ComponentPenalties])
	assert.Empty(t, result.Flags)
	assert.Equal(t, "v1", result.ScoreVersion)
	assert.Equal(t, "mkt-full", result.MarketID)
}

func TestScoreEmptyRecord(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	result := Score(domain.MarketRecord{ID: "mkt-empty"}, testConfig(), testRefs(), now)

	// Only the missing-tags penalty applies; the total clamps at zero.
	assert.Zero(t, result.TotalScore)
	assert.InDelta(t, -5.0, result.Components[ComponentPenalties], 1e-9)
	assert.Equal(t, []string{domain.FlagNoEndDate, domain.FlagNoTags}, result.Flags)
}

func TestScoreClampsAtZero(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	end := now.Add(24 * time.Hour)
	rec := domain.MarketRecord{
		ID:         "mkt-penalized",
		Restricted: true,
		EndDate:    &end,
	}

	result := Score(rec, testConfig(), testRefs(), now)
	// Positive credit: 0.4*25 end-date + 20*0.2 modelability = 14.
	// Penalties: -10 -5 -15 = -30. Clamped to zero.
	assert.Zero(t, result.TotalScore)
	assert.InDelta(t, -30.0, result.Components[ComponentPenalties], 1e-9)
}

func TestScoreShortHorizonPenalty(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()

	t.Run("under threshold penalized and flagged", func(t *testing.T) {
		rec := fullCreditRecord(now)
		end := now.Add(48 * time.Hour)
		rec.EndDate = &end

		result := Score(rec, cfg, testRefs(), now)
		assert.InDelta(t, -15.0, result.Components[ComponentPenalties], 1e-9)
		assert.Contains(t, result.Flags, domain.FlagShortHorizon)
	})

	t.Run("no end date means no horizon penalty", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.EndDate = nil

		result := Score(rec, cfg, testRefs(), now)
		assert.NotContains(t, result.Flags, domain.FlagShortHorizon)
		assert.Contains(t, result.Flags, domain.FlagNoEndDate)
		assert.Zero(t, result.Components[ComponentPenalties])
	})
}

func TestScoreProvenanceGatedFlags(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()

	t.Run("threshold flags require the field to exist upstream", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.Liquidity = 0
		rec.Volume24h = 0
		rec.OpenInterest = 0
		rec.HasLiquidityField = false
		rec.HasVolumeField = false
		rec.HasOpenInterestField = false

		result := Score(rec, cfg, testRefs(), now)
		assert.NotContains(t, result.Flags, domain.FlagLowLiquidity)
		assert.NotContains(t, result.Flags, domain.FlagLowVolume)
		assert.NotContains(t, result.Flags, domain.FlagLowOpenInterest)
	})

	t.Run("present-and-low is flagged", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.Liquidity = 10
		rec.Volume24h = 10
		rec.OpenInterest = 10

		result := Score(rec, cfg, testRefs(), now)
		assert.Contains(t, result.Flags, domain.FlagLowLiquidity)
		assert.Contains(t, result.Flags, domain.FlagLowVolume)
		assert.Contains(t, result.Flags, domain.FlagLowOpenInterest)
	})

	t.Run("missing resolution source flagged only when field exists", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.ResolutionSource = ""
		rec.HasResolutionSourceField = true
		result := Score(rec, cfg, testRefs(), now)
		assert.Contains(t, result.Flags, domain.FlagMissingResolutionSource)

		rec.HasResolutionSourceField = false
		result = Score(rec, cfg, testRefs(), now)
		assert.NotContains(t, result.Flags, domain.FlagMissingResolutionSource)
	})
}

func TestScoreTagFlags(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()

	t.Run("tagged but no strategic match", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.HasAllowedTag = false
		result := Score(rec, cfg, testRefs(), now)
		assert.Contains(t, result.Flags, domain.FlagNoAllowedTag)
		assert.Zero(t, result.Components[ComponentStrategicFit])
	})

	t.Run("untagged is no_tags, never no_allowed_tag", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.Tags = nil
		rec.HasAllowedTag = false
		result := Score(rec, cfg, testRefs(), now)
		assert.Contains(t, result.Flags, domain.FlagNoTags)
		assert.NotContains(t, result.Flags, domain.FlagNoAllowedTag)
	})

	t.Run("excluded tag flagged without affecting score", func(t *testing.T) {
		rec := fullCreditRecord(now)
		rec.IsExcluded = true
		result := Score(rec, cfg, testRefs(), now)
		assert.Contains(t, result.Flags, domain.FlagExcludedTag)
		assert.InDelta(t, 100.0, result.TotalScore, 1e-9)
	})
}

func TestScoreParticipationFallback(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	refs := testRefs()

	rec := fullCreditRecord(now)
	rec.OpenInterest = 0
	rec.Volume24h = refs.Volume24hRef

	result := Score(rec, cfg, refs, now)
	assert.InDelta(t, cfg.Weights.ParticipationQuality, result.Components[ComponentParticipationQuality], 1e-9)

	rec.Volume24h = 0
	result = Score(rec, cfg, refs, now)
	assert.Zero(t, result.Components[ComponentParticipationQuality])
}

func TestScoreZeroReference(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rec := fullCreditRecord(now)

	// A run with no observed values for a metric yields no credit for it,
	// however large the record's own value is.
	refs := domain.ReferenceStats{}
	result := Score(rec, testConfig(), refs, now)
	assert.Zero(t, result.Components[ComponentLiquidityMicrostructure])
	assert.Zero(t, result.Components[ComponentParticipationQuality])
}

func TestLogScaled(t *testing.T) {
	tests := []struct {
		name              string
		weight, value, ref float64
		want              float64
	}{
		{"zero value", 10, 0, 100, 0},
		{"zero ref", 10, 50, 0, 0},
		{"zero weight", 0, 50, 100, 0},
		{"value equals ref", 10, 100, 100, 10},
		{"value above ref clamps", 10, 1e9, 100, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, logScaled(tt.weight, tt.value, tt.ref), 1e-9)
		})
	}

	got := logScaled(10, 9, 99)
	require.Greater(t, got, 0.0)
	require.Less(t, got, 10.0)
}

func TestScoreMicrostructureReclamp(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rec := fullCreditRecord(now)
	rec.Liquidity = 1e12
	rec.Volume24h = 1e12
	rec.OpenInterest = 1e12

	result := Score(rec, testConfig(), testRefs(), now)
	assert.InDelta(t, 25.0, result.Components[ComponentLiquidityMicrostructure], 1e-9)
	assert.InDelta(t, 100.0, result.TotalScore, 1e-9)
}
