// Package normalize maps arbitrarily-shaped upstream catalog records into
// canonical market records. Upstream field names drift across API versions;
// every canonical field resolves through an ordered candidate list instead
// of hardcoded probing. Normalization never fails: a malformed record
// degrades to absent fields rather than aborting the run.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// marketURLBase prefixes the slug-derived market URL.
const marketURLBase = "https://polymarket.com/event/"

// childListKeys are the keys under which a parent record nests its market
// list, across API versions.
var childListKeys = []string{"markets", "submarkets", "children"}

// Options carries the run-scoped routing sets derived from the effective
// score config's sector map and deny-list.
type Options struct {
	AllowedTags  map[string]struct{}
	ExcludedTags map[string]struct{}
}

// ChildRecords extracts the nested market list from a parent catalog entry.
// A parent with no recognizable child list yields nothing.
func ChildRecords(parent map[string]any) []map[string]any {
	for _, key := range childListKeys {
		list, ok := parent[key].([]any)
		if !ok {
			continue
		}
		children := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				children = append(children, m)
			}
		}
		return children
	}
	return nil
}

// Normalize maps one (parent, child) record pair into a canonical record.
// position is the child's index within the parent, used for the deterministic
// ID fallback when the child carries no native id.
func Normalize(parent, child map[string]any, position int, opts Options) domain.MarketRecord {
	r := resolver{parent: parent, child: child}

	rec := domain.MarketRecord{
		HasLiquidityField:        r.present("liquidity"),
		HasVolumeField:           r.present("volume24h"),
		HasOpenInterestField:     r.present("openInterest"),
		HasResolutionSourceField: r.present("resolutionSource"),
		HasEndDateField:          r.present("endDate"),
	}

	rec.ID, _ = r.str("id")
	rec.ParentID = idString(parent)
	if rec.ID == "" {
		// Deterministic composite so the record keeps the same identity
		// across runs even without a native id.
		rec.ID = fmt.Sprintf("%s:%d", rec.ParentID, position)
	}

	rec.Slug, _ = r.str("slug")
	rec.Question, _ = r.str("question")
	rec.Description, _ = r.str("description")
	rec.ResolutionSource, _ = r.str("resolutionSource")

	if v, ok := r.raw("endDate"); ok {
		rec.EndDate = parseDate(v)
	}

	if f, ok := r.num("liquidity"); ok && f >= 0 {
		rec.Liquidity = f
	}
	if f, ok := r.num("volume24h"); ok && f >= 0 {
		rec.Volume24h = f
	}
	if f, ok := r.num("openInterest"); ok && f >= 0 {
		rec.OpenInterest = f
	}

	if b, ok := r.boolean("restricted"); ok {
		rec.Restricted = b
	}

	if v, ok := r.raw("tags"); ok {
		rec.Tags = normalizeTags(v)
	}
	rec.Outcomes = normalizeOutcomes(child)
	rec.IsMultiOutcome = len(rec.Outcomes) > 2

	rec.HasAllowedTag = intersects(rec.Tags, opts.AllowedTags)
	rec.IsExcluded = intersects(rec.Tags, opts.ExcludedTags)

	urlSlug := rec.Slug
	if urlSlug == "" {
		urlSlug, _ = r.str("parentSlug")
	}
	if urlSlug != "" {
		rec.MarketURL = marketURLBase + urlSlug
	}

	rec.RawPayload = buildRawPayload(parent, child)

	return rec
}

// normalizeTags accepts the tag shapes the API has shipped: bare strings,
// {slug,name} objects, {slug,label} objects, and nested {tag:{...}}
// wrappers. Unrecognized shapes are dropped silently. Slugs are lowercased
// and deduplicated, first occurrence wins.
func normalizeTags(v any) []domain.Tag {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	var tags []domain.Tag
	seen := make(map[string]struct{})
	for _, item := range list {
		tag, ok := coerceTag(item)
		if !ok {
			continue
		}
		tag.Slug = strings.ToLower(tag.Slug)
		if tag.Slug == "" {
			continue
		}
		if _, dup := seen[tag.Slug]; dup {
			continue
		}
		seen[tag.Slug] = struct{}{}
		if tag.DisplayName == "" {
			tag.DisplayName = tag.Slug
		}
		tags = append(tags, tag)
	}
	return tags
}

func coerceTag(item any) (domain.Tag, bool) {
	switch t := item.(type) {
	case string:
		return domain.Tag{Slug: t, DisplayName: t}, t != ""
	case map[string]any:
		if nested, ok := t["tag"].(map[string]any); ok {
			return coerceTag(nested)
		}
		tag := domain.Tag{Slug: stringField(t, "slug")}
		if tag.Slug == "" {
			return domain.Tag{}, false
		}
		tag.DisplayName = stringField(t, "name")
		if tag.DisplayName == "" {
			tag.DisplayName = stringField(t, "label")
		}
		return tag, true
	}
	return domain.Tag{}, false
}

// normalizeOutcomes reconciles the two independent upstream representations:
// a list of outcome descriptors (strings or objects, possibly JSON-encoded)
// and a parallel list of outcome prices matched by positional index when a
// descriptor carries no inline probability.
func normalizeOutcomes(child map[string]any) []domain.Outcome {
	if child == nil {
		return nil
	}

	descriptors := stringishList(firstValue(child, "outcomes", "outcomeNames"))
	prices := parsePrices(firstValue(child, "outcomePrices", "outcome_prices", "prices"))

	var outcomes []domain.Outcome
	for i, d := range descriptors {
		out := domain.Outcome{}
		switch t := d.(type) {
		case string:
			out.Name = t
		case map[string]any:
			out.Name = stringField(t, "name")
			if out.Name == "" {
				out.Name = stringField(t, "title")
			}
			if p, ok := coerceFloat(firstValue(t, "probability", "price")); ok {
				out.Probability = &p
			}
		default:
			continue
		}
		if out.Probability == nil && i < len(prices) {
			out.Probability = prices[i]
		}
		outcomes = append(outcomes, out)
	}

	// A two-outcome market that only shipped prices gets canonical names.
	if len(outcomes) == 0 && len(prices) == 2 {
		outcomes = []domain.Outcome{
			{Name: "Yes", Probability: prices[0]},
			{Name: "No", Probability: prices[1]},
		}
	}
	if len(outcomes) == 2 && outcomes[0].Name == "" && outcomes[1].Name == "" {
		outcomes[0].Name = "Yes"
		outcomes[1].Name = "No"
	}

	return outcomes
}

// parsePrices keeps positions aligned with the descriptor list; entries that
// do not coerce stay nil so the outcome's probability remains absent.
func parsePrices(v any) []*float64 {
	list := stringishList(v)
	if list == nil {
		return nil
	}
	prices := make([]*float64, len(list))
	for i, item := range list {
		if f, ok := coerceFloat(item); ok {
			prices[i] = &f
		}
	}
	return prices
}

// buildRawPayload retains the original upstream data for audit: the parent
// entry minus its nested child list, plus the child record.
func buildRawPayload(parent, child map[string]any) map[string]any {
	stripped := make(map[string]any, len(parent))
	for k, v := range parent {
		if isChildListKey(k) {
			continue
		}
		stripped[k] = v
	}
	return map[string]any{
		"parent": stripped,
		"market": child,
	}
}

func isChildListKey(k string) bool {
	for _, key := range childListKeys {
		if k == key {
			return true
		}
	}
	return false
}

func intersects(tags []domain.Tag, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	for _, t := range tags {
		if _, ok := set[t.Slug]; ok {
			return true
		}
	}
	return false
}

// idString extracts a parent id, tolerating the numeric ids some API
// versions send.
func idString(m map[string]any) string {
	if m == nil {
		return ""
	}
	switch t := m["id"].(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
