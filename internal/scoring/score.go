package scoring

import (
	"math"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// Component names returned in ScoreResult.Components.
const (
	ComponentResolutionIntegrity     = "resolution_integrity"
	ComponentLiquidityMicrostructure = "liquidity_microstructure"
	ComponentModelability            = "modelability"
	ComponentParticipationQuality    = "participation_quality"
	ComponentStrategicFit            = "strategic_fit"
	ComponentPenalties               = "penalties"
)

// Score computes the researchability score for one record. It is
// deterministic and performs no I/O; now anchors the horizon calculation.
// The total is clamped to [0,100] after penalties.
func Score(rec domain.MarketRecord, cfg domain.ScoreConfig, refs domain.ReferenceStats, now time.Time) domain.ScoreResult {
	components := make(map[string]float64, 6)

	hasResolutionSource := rec.ResolutionSource != ""
	hasEndDate := rec.EndDate != nil
	hasTags := len(rec.Tags) > 0

	// Resolution integrity: split between resolution-source and end-date
	// presence.
	resolution := 0.0
	if hasResolutionSource {
		resolution += 0.6 * cfg.Weights.ResolutionIntegrity
	}
	if hasEndDate {
		resolution += 0.4 * cfg.Weights.ResolutionIntegrity
	}
	components[ComponentResolutionIntegrity] = resolution

	// Liquidity microstructure: log-scaled sub-scores, each clamped to its
	// share, summed and re-clamped to the parent weight.
	lw := cfg.Weights.LiquidityMicrostructure
	micro := logScaled(0.6*lw, rec.Liquidity, refs.LiquidityRef) +
		logScaled(0.3*lw, rec.Volume24h, refs.Volume24hRef) +
		logScaled(0.1*lw, rec.OpenInterest, refs.OpenInterestRef)
	components[ComponentLiquidityMicrostructure] = clamp(micro, 0, lw)

	// Modelability: presence signal over tags, resolution source, end date.
	signal := 0.0
	if hasTags {
		signal += 0.5
	}
	if hasResolutionSource {
		signal += 0.3
	}
	if hasEndDate {
		signal += 0.2
	}
	components[ComponentModelability] = cfg.Weights.Modelability * signal

	// Participation quality: open interest preferred, volume as fallback.
	participation := 0.0
	if rec.OpenInterest > 0 {
		participation = logScaled(cfg.Weights.ParticipationQuality, rec.OpenInterest, refs.OpenInterestRef)
	} else if rec.Volume24h > 0 {
		participation = logScaled(cfg.Weights.ParticipationQuality, rec.Volume24h, refs.Volume24hRef)
	}
	components[ComponentParticipationQuality] = participation

	// Strategic fit: all or nothing on the allowed-sector intersection.
	if rec.HasAllowedTag {
		components[ComponentStrategicFit] = cfg.Weights.StrategicFit
	} else {
		components[ComponentStrategicFit] = 0
	}

	// Penalties are negative and additive.
	penalty := 0.0
	if rec.Restricted {
		penalty += cfg.Penalties.Restricted
	}
	if !hasTags {
		penalty += cfg.Penalties.MissingTags
	}
	horizonDays, horizonKnown := daysUntil(rec.EndDate, now)
	if horizonKnown && horizonDays < cfg.Thresholds.MinHorizonDays {
		penalty += cfg.Penalties.ShortHorizon
	}
	components[ComponentPenalties] = penalty

	total := 0.0
	for _, v := range components {
		total += v
	}

	return domain.ScoreResult{
		MarketID:     rec.ID,
		TotalScore:   clamp(total, 0, 100),
		Components:   components,
		Flags:        collectFlags(rec, cfg, horizonDays, horizonKnown),
		ScoreVersion: cfg.ScoreVersion,
		Refs:         refs,
	}
}

// collectFlags emits diagnostic codes in a stable order. Threshold flags for
// a metric are gated on the upstream schema actually carrying that field, so
// "upstream never sent it" is never reported as "below threshold".
func collectFlags(rec domain.MarketRecord, cfg domain.ScoreConfig, horizonDays int, horizonKnown bool) []string {
	var flags []string

	if rec.ResolutionSource == "" && rec.HasResolutionSourceField {
		flags = append(flags, domain.FlagMissingResolutionSource)
	}
	if rec.EndDate == nil {
		flags = append(flags, domain.FlagNoEndDate)
	}
	if rec.HasLiquidityField && rec.Liquidity < cfg.Thresholds.MinLiquidity {
		flags = append(flags, domain.FlagLowLiquidity)
	}
	if rec.HasVolumeField && rec.Volume24h < cfg.Thresholds.MinVolume24h {
		flags = append(flags, domain.FlagLowVolume)
	}
	if rec.HasOpenInterestField && rec.OpenInterest < cfg.Thresholds.MinOpenInterest {
		flags = append(flags, domain.FlagLowOpenInterest)
	}
	if horizonKnown && horizonDays < cfg.Thresholds.MinHorizonDays {
		flags = append(flags, domain.FlagShortHorizon)
	}
	if len(rec.Tags) == 0 {
		flags = append(flags, domain.FlagNoTags)
	}
	if rec.IsExcluded {
		flags = append(flags, domain.FlagExcludedTag)
	}
	if !rec.HasAllowedTag && len(rec.Tags) > 0 {
		flags = append(flags, domain.FlagNoAllowedTag)
	}

	return flags
}

// logScaled compresses a heavy-tailed metric into a bounded contribution:
// clamp(weight * log10(1+value) / log10(1+ref), 0, weight). A zero value or
// zero reference contributes exactly 0.
func logScaled(weight, value, ref float64) float64 {
	if ref <= 0 || value <= 0 || weight <= 0 {
		return 0
	}
	return clamp(weight*math.Log10(1+value)/math.Log10(1+ref), 0, weight)
}

// daysUntil returns the whole days from now to end, and whether the horizon
// is resolvable at all. A record without an end date has no horizon and is
// never treated as short.
func daysUntil(end *time.Time, now time.Time) (int, bool) {
	if end == nil {
		return 0, false
	}
	return int(end.Sub(now).Hours() / 24), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
