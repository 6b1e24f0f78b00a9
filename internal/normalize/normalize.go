// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts heterogeneous module metadata, as stored in
// a similarity index, into the canonical display shape. All functions are
// pure and tolerate missing or malformed fields by returning empty values.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sosodev/duration"

	"github.com/pdiddy/recog-engine/pkg/types"
)

// hoursPerCredit is the ECTS workload convention used for estimates.
const hoursPerCredit = 30

// ParseWorkload renders the workload of a module as "<hours> Stunden".
//
// The duration field is preferred over the workload field and is read as
// an ISO-8601 duration. Only the fixed-length part (weeks, days, hours,
// minutes, seconds) counts toward the hours; calendar years and months
// have no fixed length and are ignored, so "P0Y1M0DT90H0M0S" is 90 hours.
//
// Without a parseable duration the workload is estimated from credits as
// "~<credits*30> Stunden". Credits are truncated to an integer first, so
// 2.5 credits estimate 60 hours, not 75. Returns "" when neither source
// is present.
func ParseWorkload(metadata map[string]any) string {
	if raw := First(metadata, "duration", "workload"); raw != nil {
		if s, ok := raw.(string); ok {
			if hours, ok := isoHours(s); ok {
				return strconv.FormatInt(hours, 10) + " Stunden"
			}
		}
	}

	credits, ok := Number(metadata, "credits")
	if ok && credits != 0 {
		// TODO: confirm with the examination office whether fractional
		// credits should round instead of truncate.
		return "~" + strconv.FormatInt(int64(math.Trunc(credits))*hoursPerCredit, 10) + " Stunden"
	}
	return ""
}

// isoHours parses an ISO-8601 duration and returns its fixed-length part
// in whole hours, truncated toward zero.
func isoHours(s string) (int64, bool) {
	d, err := duration.Parse(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	seconds := d.Weeks*7*86400 + d.Days*86400 + d.Hours*3600 + d.Minutes*60 + d.Seconds
	if d.Negative {
		seconds = -seconds
	}
	return int64(math.Trunc(seconds / 3600)), true
}

// CollectPrograms joins the study programs of a module. A list under
// "programs" or "program" is joined with ", "; a scalar passes through.
func CollectPrograms(metadata map[string]any) string {
	switch v := First(metadata, "programs", "program").(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, Stringify(p))
		}
		return strings.Join(parts, ", ")
	case string:
		if list, ok := decodeList(v); ok {
			return strings.Join(list, ", ")
		}
		return v
	default:
		return Stringify(v)
	}
}

// First returns the first truthy value among keys, or nil.
func First(metadata map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := metadata[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

// String returns the first truthy value among keys as a string.
func String(metadata map[string]any, keys ...string) string {
	return Stringify(First(metadata, keys...))
}

// Number reads a numeric field. Numeric strings are accepted.
func Number(metadata map[string]any, key string) (float64, bool) {
	switch v := metadata[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		return types.ParseCredits(v)
	default:
		return 0, false
	}
}

// Credits reads the credits field as an optional value.
func Credits(metadata map[string]any) types.Credits {
	if v, ok := Number(metadata, "credits"); ok {
		return types.NewCredits(v)
	}
	return types.Credits{}
}

// StringList reads a list field. A JSON-encoded list stored as a string
// (index backends that only keep scalar metadata) is decoded as well.
func StringList(metadata map[string]any, keys ...string) []string {
	switch v := First(metadata, keys...).(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := Stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list, ok := decodeList(v); ok {
			return list
		}
		return []string{v}
	default:
		return nil
	}
}

// decodeList decodes a JSON array of scalars stored as a string.
func decodeList(s string) ([]string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(s), "[") {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str := Stringify(item); str != "" {
			out = append(out, str)
		}
	}
	return out, true
}

// Stringify renders a metadata value for display. Strings pass through,
// whole floats print without a fraction, and composites render as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool, int, int64, float32, json.Number:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// truthy follows the usual notion of an empty value: nil, "", 0, false
// and empty collections are not truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		return t.String() != "0"
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
