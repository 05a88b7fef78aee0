package domain

import "strings"

// ScoreWeights are the maximum contributions of each scoring component.
// They should sum to roughly 100 but the scorer clamps the total regardless.
type ScoreWeights struct {
	ResolutionIntegrity     float64 `json:"resolutionIntegrity" toml:"resolution_integrity"`
	LiquidityMicrostructure float64 `json:"liquidityMicrostructure" toml:"liquidity_microstructure"`
	Modelability            float64 `json:"modelability" toml:"modelability"`
	ParticipationQuality    float64 `json:"participationQuality" toml:"participation_quality"`
	StrategicFit            float64 `json:"strategicFit" toml:"strategic_fit"`
}

// ScorePenalties are additive score adjustments, expressed as negative
// numbers, applied after the positive components.
type ScorePenalties struct {
	Restricted   float64 `json:"restricted" toml:"restricted"`
	MissingTags  float64 `json:"missingTags" toml:"missing_tags"`
	ShortHorizon float64 `json:"shortHorizon" toml:"short_horizon"`
}

// ScoreThresholds control when the scorer emits low-metric and short-horizon
// diagnostic flags.
type ScoreThresholds struct {
	MinLiquidity    float64 `json:"minLiquidity" toml:"min_liquidity"`
	MinVolume24h    float64 `json:"minVolume24h" toml:"min_volume_24h"`
	MinOpenInterest float64 `json:"minOpenInterest" toml:"min_open_interest"`
	MinHorizonDays  int     `json:"minHorizonDays" toml:"min_horizon_days"`
}

// ScoreConfig is the full set of tunable scoring parameters. The file-based
// default is merged with an externally-stored override at the start of every
// run; the pipeline itself never writes this record.
type ScoreConfig struct {
	Weights       ScoreWeights        `json:"weights" toml:"weights"`
	Penalties     ScorePenalties      `json:"penalties" toml:"penalties"`
	Thresholds    ScoreThresholds     `json:"thresholds" toml:"thresholds"`
	Sectors       map[string][]string `json:"sectors" toml:"sectors"`
	ExcludedTags  []string            `json:"excludedTags" toml:"excluded_tags"`
	RefPercentile float64             `json:"refPercentile" toml:"ref_percentile"`
	BatchSize     int                 `json:"batchSize" toml:"batch_size"`
	MaxMarkets    int                 `json:"maxMarkets" toml:"max_markets"`
	ScoreVersion  string              `json:"scoreVersion" toml:"score_version"`
}

// AllowedTagSet flattens the sector map into the set of tag slugs that count
// as strategic-fit matches. Slugs are lowercased.
func (c *ScoreConfig) AllowedTagSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, slugs := range c.Sectors {
		for _, s := range slugs {
			set[strings.ToLower(s)] = struct{}{}
		}
	}
	return set
}

// ExcludedTagSet returns the deny-list as a lowercased set.
func (c *ScoreConfig) ExcludedTagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExcludedTags))
	for _, s := range c.ExcludedTags {
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}

// ScoreConfigOverride is the externally-stored partial override of the
// file-based score config. Nil fields inherit the default; non-nil fields
// win. Written only by the admin surface.
type ScoreConfigOverride struct {
	Weights       *ScoreWeights       `json:"weights,omitempty"`
	Penalties     *ScorePenalties     `json:"penalties,omitempty"`
	Thresholds    *ScoreThresholds    `json:"thresholds,omitempty"`
	Sectors       map[string][]string `json:"sectors,omitempty"`
	ExcludedTags  []string            `json:"excludedTags,omitempty"`
	RefPercentile *float64            `json:"refPercentile,omitempty"`
	BatchSize     *int                `json:"batchSize,omitempty"`
	MaxMarkets    *int                `json:"maxMarkets,omitempty"`
	ScoreVersion  *string             `json:"scoreVersion,omitempty"`
}

// ResolveConfig merges an optional override on top of the defaults,
// field group by field group. It never mutates its inputs and is invoked
// exactly once per run; the result is threaded explicitly through the
// normalizer and scorer.
func ResolveConfig(defaults ScoreConfig, override *ScoreConfigOverride) ScoreConfig {
	cfg := defaults
	if override == nil {
		return cfg
	}
	if override.Weights != nil {
		cfg.Weights = *override.Weights
	}
	if override.Penalties != nil {
		cfg.Penalties = *override.Penalties
	}
	if override.Thresholds != nil {
		cfg.Thresholds = *override.Thresholds
	}
	if override.Sectors != nil {
		cfg.Sectors = override.Sectors
	}
	if override.ExcludedTags != nil {
		cfg.ExcludedTags = override.ExcludedTags
	}
	if override.RefPercentile != nil {
		cfg.RefPercentile = *override.RefPercentile
	}
	if override.BatchSize != nil {
		cfg.BatchSize = *override.BatchSize
	}
	if override.MaxMarkets != nil {
		cfg.MaxMarkets = *override.MaxMarkets
	}
	if override.ScoreVersion != nil {
		cfg.ScoreVersion = *override.ScoreVersion
	}
	return cfg
}
