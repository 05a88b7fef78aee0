package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// source identifies which upstream record a candidate key is probed on.
type source int

const (
	fromChild source = iota
	fromParent
)

// candidate is one (record, key) location where a canonical field may live.
// Candidates are evaluated in order and the first usable value wins, which
// keeps the schema-drift handling data-driven rather than buried in
// conditional chains.
type candidate struct {
	src source
	key string
}

// fieldCandidates maps each canonical field to its ordered probe list:
// child record first, then parent, across historical and current spellings
// of the Gamma API schema.
var fieldCandidates = map[string][]candidate{
	"id": {
		{fromChild, "id"},
		{fromChild, "conditionId"},
		{fromChild, "condition_id"},
	},
	"slug": {
		{fromChild, "slug"},
		{fromChild, "marketSlug"},
		{fromChild, "market_slug"},
	},
	"parentSlug": {
		{fromParent, "slug"},
		{fromParent, "ticker"},
	},
	"question": {
		{fromChild, "question"},
		{fromChild, "title"},
		{fromParent, "title"},
		{fromParent, "question"},
	},
	"description": {
		{fromChild, "description"},
		{fromParent, "description"},
	},
	"resolutionSource": {
		{fromChild, "resolutionSource"},
		{fromChild, "resolution_source"},
		{fromParent, "resolutionSource"},
	},
	"endDate": {
		{fromChild, "endDate"},
		{fromChild, "endDateIso"},
		{fromChild, "end_date_iso"},
		{fromChild, "endDateISO"},
		{fromParent, "endDate"},
		{fromParent, "endDateIso"},
	},
	"liquidity": {
		{fromChild, "liquidity"},
		{fromChild, "liquidityNum"},
		{fromChild, "liquidityClob"},
		{fromParent, "liquidity"},
		{fromParent, "liquidityNum"},
	},
	"volume24h": {
		{fromChild, "volume24hr"},
		{fromChild, "volume24hrClob"},
		{fromChild, "volume_24hr"},
		{fromParent, "volume24hr"},
	},
	"openInterest": {
		{fromChild, "openInterest"},
		{fromChild, "open_interest"},
		{fromChild, "openInterestClob"},
		{fromParent, "openInterest"},
	},
	"tags": {
		{fromChild, "tags"},
		{fromParent, "tags"},
	},
	"restricted": {
		{fromChild, "restricted"},
		{fromParent, "restricted"},
	},
}

// resolver evaluates candidate lists against one parent/child record pair.
type resolver struct {
	parent map[string]any
	child  map[string]any
}

func (r resolver) lookup(c candidate) (any, bool) {
	rec := r.child
	if c.src == fromParent {
		rec = r.parent
	}
	if rec == nil {
		return nil, false
	}
	v, ok := rec[c.key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// raw returns the first present, non-null candidate value for the field.
func (r resolver) raw(field string) (any, bool) {
	for _, c := range fieldCandidates[field] {
		if v, ok := r.lookup(c); ok {
			return v, true
		}
	}
	return nil, false
}

// str returns the first candidate that coerces to a non-empty string.
func (r resolver) str(field string) (string, bool) {
	for _, c := range fieldCandidates[field] {
		v, ok := r.lookup(c)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// num returns the first candidate that coerces to a finite number.
// Non-finite coercion results are treated as absent.
func (r resolver) num(field string) (float64, bool) {
	for _, c := range fieldCandidates[field] {
		v, ok := r.lookup(c)
		if !ok {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// boolean returns the first candidate that coerces to a bool.
func (r resolver) boolean(field string) (bool, bool) {
	for _, c := range fieldCandidates[field] {
		v, ok := r.lookup(c)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			return strings.EqualFold(t, "true") || t == "1", true
		}
	}
	return false, false
}

// present reports whether any candidate key for the field exists on its
// source record, regardless of the value. This is the provenance signal: a
// field that upstream carries as zero is distinct from a field upstream
// never sent.
func (r resolver) present(field string) bool {
	for _, c := range fieldCandidates[field] {
		rec := r.child
		if c.src == fromParent {
			rec = r.parent
		}
		if rec == nil {
			continue
		}
		if _, ok := rec[c.key]; ok {
			return true
		}
	}
	return false
}

// coerceFloat converts the JSON value shapes the Gamma API has used for
// numeric fields. NaN and infinities count as absent.
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// epochMillisThreshold disambiguates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e12

// dateLayouts are tried in order for date strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate interprets an upstream date value: epoch seconds, epoch
// milliseconds, or a date string. Unparseable input yields nil, never a
// default date.
func parseDate(v any) *time.Time {
	switch t := v.(type) {
	case float64, float32, int, int64, json.Number:
		f, ok := coerceFloat(t)
		if !ok {
			return nil
		}
		return epochToTime(f)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return &parsed
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(f)
		}
	}
	return nil
}

func epochToTime(f float64) *time.Time {
	if f <= 0 {
		return nil
	}
	var ts time.Time
	if f >= epochMillisThreshold {
		ts = time.UnixMilli(int64(f)).UTC()
	} else {
		ts = time.Unix(int64(f), 0).UTC()
	}
	return &ts
}

// stringishList decodes a value that is either a native array or a
// JSON-encoded string array ("[\"Yes\",\"No\"]"), a shape the Gamma API
// uses for outcomes and outcome prices.
func stringishList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		var decoded []any
		if err := json.Unmarshal([]byte(t), &decoded); err == nil {
			return decoded
		}
	}
	return nil
}
