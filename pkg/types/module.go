// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the records exchanged between the recognition stages
// and the configuration structs of each stage.
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Credits is an ECTS value that may be absent. The zero value is absent.
// It decodes from a JSON number, a numeric string ("5", "7,5", "5 ECTS")
// or null; anything else decodes as absent rather than failing.
type Credits struct {
	Value float64
	Valid bool
}

// NewCredits returns a present Credits value.
func NewCredits(v float64) Credits {
	return Credits{Value: v, Valid: true}
}

// MarshalJSON writes the number or null.
func (c Credits) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (c *Credits) UnmarshalJSON(data []byte) error {
	*c = Credits{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = NewCredits(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, ok := ParseCredits(s); ok {
			*c = NewCredits(v)
		}
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON for YAML output.
func (c Credits) MarshalYAML() (any, error) {
	if !c.Valid {
		return nil, nil
	}
	return c.Value, nil
}

// ParseCredits reads the leading number of s. A decimal comma is accepted.
func ParseCredits(s string) (float64, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ModuleRecord is the canonical structured description of a module. It is
// the wire format between extraction and examination.
type ModuleRecord struct {
	Title          string   `json:"title" yaml:"title"`
	Credits        Credits  `json:"credits" yaml:"credits"`
	Workload       string   `json:"workload" yaml:"workload"`
	LearningGoals  []string `json:"learning_goals" yaml:"learning_goals"`
	AssessmentType string   `json:"assessment_type" yaml:"assessment_type"`
	Level          string   `json:"level" yaml:"level"`
	Program        string   `json:"program" yaml:"program"`
	Institution    string   `json:"institution" yaml:"institution"`

	// Description carries the raw input on the fallback path only.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// RawDocument is the normalized input text. Always populated.
	RawDocument string `json:"raw_document" yaml:"raw_document"`

	// OriginalDoc duplicates RawDocument for display consumers.
	OriginalDoc string `json:"original_doc,omitempty" yaml:"original_doc,omitempty"`

	// Error is set only when extraction failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the record is an extraction fallback.
func (m ModuleRecord) Failed() bool {
	return m.Error != ""
}

// WithLearningGoals returns a copy of m with goals replaced.
func (m ModuleRecord) WithLearningGoals(goals []string) ModuleRecord {
	out := m
	out.LearningGoals = append([]string(nil), goals...)
	return out
}

// JSON serializes the record. Marshaling a ModuleRecord cannot fail.
func (m ModuleRecord) JSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

// SuggestionEntry is one ranked candidate module from the similarity index.
// The similarity score is used for ordering only and is not exposed.
type SuggestionEntry struct {
	ID             string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title          string   `json:"title" yaml:"title"`
	Credits        Credits  `json:"credits" yaml:"credits"`
	Workload       string   `json:"workload" yaml:"workload"`
	Description    string   `json:"description" yaml:"description"`
	LearningGoals  []string `json:"learning_goals,omitempty" yaml:"learning_goals,omitempty"`
	AssessmentType string   `json:"assessment_type,omitempty" yaml:"assessment_type,omitempty"`
	Level          string   `json:"level" yaml:"level"`
	Program        string   `json:"program" yaml:"program"`
	Institution    string   `json:"institution" yaml:"institution"`
	Content        string   `json:"content" yaml:"content"`

	// JSON is the serialized form of all other fields, for round-tripping
	// a selected candidate back into the examination step.
	JSON string `json:"json,omitempty" yaml:"-"`
}

// Seal fills JSON from the remaining fields.
func (s *SuggestionEntry) Seal() {
	c := *s
	c.JSON = ""
	data, _ := json.Marshal(c)
	s.JSON = string(data)
}
