package polymarket

import (
	"encoding/json"
	"fmt"
)

// RawEvent is one parent catalog entry exactly as the Gamma API returned it.
// The upstream schema renames and drops fields across API versions, so the
// payload is kept as a raw map and interpreted downstream by the normalizer.
type RawEvent = map[string]any

// envelopeKeys are the wrapper keys under which the Gamma API has been
// observed to nest the record array, depending on endpoint and version.
var envelopeKeys = []string{"data", "events", "markets"}

// decodeRecordPage decodes one page of catalog records. The API returns
// either a bare JSON array or an object wrapping the array under a known key.
func decodeRecordPage(body []byte) ([]RawEvent, error) {
	var page []RawEvent
	if err := json.Unmarshal(body, &page); err == nil {
		return page, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode page: %w", err)
	}
	for _, key := range envelopeKeys {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("polymarket/gamma: decode page under %q: %w", key, err)
		}
		return page, nil
	}
	return nil, fmt.Errorf("polymarket/gamma: page is neither an array nor a known envelope")
}
