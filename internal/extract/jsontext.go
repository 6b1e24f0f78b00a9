// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"strings"
)

// ExtractJSON parses a JSON value out of model output. The whole text is
// tried first; if that fails, the span from the first '{' to the last '}'
// is tried. When neither parses, the error from the first attempt is
// returned so callers see what the model actually produced.
//
// Objects decode to map[string]any and arrays to []any.
func ExtractJSON(text string) (any, error) {
	raw, err := extractRaw(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// extractRaw returns the bytes ExtractJSON would decode, keeping object key
// order intact for callers that care.
func extractRaw(text string) (json.RawMessage, error) {
	var probe any
	err := json.Unmarshal([]byte(text), &probe)
	if err == nil {
		return json.RawMessage(strings.TrimSpace(text)), nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && start < end {
		inner := text[start : end+1]
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), nil
		}
	}
	return nil, err
}
