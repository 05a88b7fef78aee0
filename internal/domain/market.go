package domain

import "time"

// Tag is a normalized classification label. Slug is lowercased and unique
// within a record's tag set.
type Tag struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName"`
}

// Outcome is a single tradable outcome of a market. Probability is nil when
// the upstream payload carried no price for the outcome.
type Outcome struct {
	Name        string   `json:"name"`
	Probability *float64 `json:"probability,omitempty"`
}

// MarketRecord is the canonical, schema-stable representation of one market
// discovered in the upstream catalog, independent of upstream field-naming
// drift. One record exists per tradable market; IDs are stable across runs.
type MarketRecord struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Slug     string `json:"slug"`

	Question         string     `json:"question"`
	Description      string     `json:"description"`
	ResolutionSource string     `json:"resolutionSource,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`

	// Metrics default to 0 only when genuinely absent upstream; the
	// provenance flags below distinguish "absent" from "present and zero".
	Liquidity    float64 `json:"liquidity"`
	Volume24h    float64 `json:"volume24h"`
	OpenInterest float64 `json:"openInterest"`

	HasLiquidityField        bool `json:"hasLiquidityField"`
	HasVolumeField           bool `json:"hasVolumeField"`
	HasOpenInterestField     bool `json:"hasOpenInterestField"`
	HasResolutionSourceField bool `json:"hasResolutionSourceField"`
	HasEndDateField          bool `json:"hasEndDateField"`

	Tags           []Tag     `json:"tags"`
	Outcomes       []Outcome `json:"outcomes"`
	IsMultiOutcome bool      `json:"isMultiOutcome"`

	Restricted    bool   `json:"restricted"`
	HasAllowedTag bool   `json:"hasAllowedTag"`
	IsExcluded    bool   `json:"isExcluded"`
	MarketURL     string `json:"marketUrl"`

	// RawPayload is the upstream payload retained for audit: the parent
	// catalog entry stripped of its nested market list, plus the child
	// record itself.
	RawPayload map[string]any `json:"rawPayload,omitempty"`
}

// TagSlugs returns the record's tag slugs in order.
func (r *MarketRecord) TagSlugs() []string {
	slugs := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		slugs = append(slugs, t.Slug)
	}
	return slugs
}

// Annotation holds analyst-entered state for one market. The pipeline only
// ever creates empty placeholders; state and notes are owned by the admin
// surface and survive re-syncs.
type Annotation struct {
	MarketID  string    `json:"marketId"`
	State     string    `json:"state"`
	Notes     string    `json:"notes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AnnotationStateNew is the state assigned to freshly created placeholders.
const AnnotationStateNew = "new"
