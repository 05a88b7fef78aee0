package domain

import "time"

// ReferenceStats holds the percentile-derived benchmark for each magnitude
// metric, computed once per run over the full normalized catalog. A zero
// reference means no positive values were observed for that metric.
type ReferenceStats struct {
	LiquidityRef    float64 `json:"liquidityRef"`
	Volume24hRef    float64 `json:"volume24hRef"`
	OpenInterestRef float64 `json:"openInterestRef"`
}

// ScoreResult is the explainable researchability score for one market.
// Components are named so the total can be audited; Flags carry diagnostic
// codes that do not necessarily affect the score. Refs records the reference
// stats in force when the score was computed.
type ScoreResult struct {
	MarketID     string             `json:"marketId"`
	TotalScore   float64            `json:"totalScore"`
	Components   map[string]float64 `json:"components"`
	Flags        []string           `json:"flags"`
	ScoreVersion string             `json:"scoreVersion"`
	Refs         ReferenceStats     `json:"refs"`
	ComputedAt   time.Time          `json:"computedAt"`
}

// Diagnostic flag codes emitted by the scorer.
const (
	FlagMissingResolutionSource = "missing_resolution_source"
	FlagNoEndDate               = "no_end_date"
	FlagLowLiquidity            = "low_liquidity"
	FlagLowVolume               = "low_volume"
	FlagLowOpenInterest         = "low_open_interest"
	FlagShortHorizon            = "short_horizon"
	FlagNoTags                  = "no_tags"
	FlagExcludedTag             = "excluded_tag"
	FlagNoAllowedTag            = "no_allowed_tag"
)

// RunStats summarizes one completed sync run.
type RunStats struct {
	EventCount  int `json:"eventCount"`
	MarketCount int `json:"marketCount"`
}

// RunStatus is the singleton bookkeeping record for the sync pipeline.
// LastAttemptedAt is written at run start; on success the success timestamp,
// stats, and refs are written; on failure the error message is written and
// the attempt timestamp is preserved.
type RunStatus struct {
	LastAttemptedAt *time.Time      `json:"lastAttemptedAt,omitempty"`
	LastSucceededAt *time.Time      `json:"lastSucceededAt,omitempty"`
	LastError       string          `json:"lastError,omitempty"`
	LastStats       *RunStats       `json:"lastStats,omitempty"`
	LastRefs        *ReferenceStats `json:"lastRefs,omitempty"`
}

// RunSummary is returned to the caller of a completed sync run.
type RunSummary struct {
	EventCount  int            `json:"eventCount"`
	MarketCount int            `json:"marketCount"`
	Refs        ReferenceStats `json:"refs"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
}
