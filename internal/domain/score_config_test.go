package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseConfig() ScoreConfig {
	return ScoreConfig{
		Weights: ScoreWeights{
			ResolutionIntegrity:     25,
			LiquidityMicrostructure: 25,
			Modelability:            20,
			ParticipationQuality:    15,
			StrategicFit:            15,
		},
		Penalties:     ScorePenalties{Restricted: -10, MissingTags: -5, ShortHorizon: -15},
		Thresholds:    ScoreThresholds{MinLiquidity: 1000, MinVolume24h: 500, MinOpenInterest: 1000, MinHorizonDays: 3},
		Sectors:       map[string][]string{"politics": {"politics", "elections"}},
		ExcludedTags:  []string{"sports"},
		RefPercentile: 0.90,
		BatchSize:     25,
		ScoreVersion:  "v1",
	}
}

func TestResolveConfigNilOverride(t *testing.T) {
	defaults := baseConfig()
	got := ResolveConfig(defaults, nil)
	assert.Equal(t, defaults, got)
}

func TestResolveConfigPartialOverride(t *testing.T) {
	defaults := baseConfig()
	percentile := 0.75
	version := "v2-experimental"
	override := &ScoreConfigOverride{
		Weights: &ScoreWeights{
			ResolutionIntegrity:     30,
			LiquidityMicrostructure: 30,
			Modelability:            20,
			ParticipationQuality:    10,
			StrategicFit:            10,
		},
		RefPercentile: &percentile,
		ScoreVersion:  &version,
	}

	got := ResolveConfig(defaults, override)

	// Overridden field groups are replaced wholesale.
	assert.Equal(t, 30.0, got.Weights.ResolutionIntegrity)
	assert.Equal(t, 0.75, got.RefPercentile)
	assert.Equal(t, "v2-experimental", got.ScoreVersion)

	// Untouched groups inherit the defaults.
	assert.Equal(t, defaults.Penalties, got.Penalties)
	assert.Equal(t, defaults.Thresholds, got.Thresholds)
	assert.Equal(t, defaults.Sectors, got.Sectors)
	assert.Equal(t, defaults.BatchSize, got.BatchSize)

	// The defaults themselves were not mutated.
	assert.Equal(t, 25.0, defaults.Weights.ResolutionIntegrity)
}

func TestResolveConfigListOverrides(t *testing.T) {
	defaults := baseConfig()
	override := &ScoreConfigOverride{
		Sectors:      map[string][]string{"crypto": {"crypto", "defi"}},
		ExcludedTags: []string{},
	}

	got := ResolveConfig(defaults, override)
	assert.Equal(t, map[string][]string{"crypto": {"crypto", "defi"}}, got.Sectors)
	// An explicit empty list clears the deny-list; nil would inherit.
	assert.Empty(t, got.ExcludedTags)
	assert.NotNil(t, got.ExcludedTags)
}

func TestAllowedTagSet(t *testing.T) {
	cfg := ScoreConfig{Sectors: map[string][]string{
		"politics": {"Politics", "elections"},
		"economy":  {"Economy", "elections"},
	}}

	set := cfg.AllowedTagSet()
	assert.Len(t, set, 3)
	assert.Contains(t, set, "politics")
	assert.Contains(t, set, "elections")
	assert.Contains(t, set, "economy")
}

func TestExcludedTagSet(t *testing.T) {
	cfg := ScoreConfig{ExcludedTags: []string{"Sports", "esports"}}

	set := cfg.ExcludedTagSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "sports")
	assert.Contains(t, set, "esports")
}
