// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/recog-engine/internal/normalize"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// LearningGoals decodes the learning_goals field of a model answer.
//
// The expected shape is a list of strings. Two other shapes are repaired:
// a list of objects is flattened to the objects' values in key order, and
// a bare string becomes a single goal. Any other shape is an error.
type LearningGoals []string

// UnmarshalJSON implements the decode rules above.
func (g *LearningGoals) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*g = nil
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*g = LearningGoals{single}
		}
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("learning_goals: expected a list, got %s", kindOf(data))
	}
	if kindOf(elems[0]) != "object" {
		return fmt.Errorf("learning_goals: unsupported element type %s", kindOf(elems[0]))
	}

	out := make([]string, 0, len(elems))
	for i, elem := range elems {
		values, err := objectValues(elem)
		if err != nil {
			return fmt.Errorf("learning_goals[%d]: %w", i, err)
		}
		out = append(out, values...)
	}
	*g = out
	return nil
}

// objectValues returns the values of a JSON object in document order.
func objectValues(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %s", kindOf(raw))
	}

	var values []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		values = append(values, normalize.Stringify(v))
	}
	return values, nil
}

// kindOf names the JSON type of a raw value for error messages.
func kindOf(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// looseString decodes any JSON scalar or list into display text. Models
// sometimes answer a string field with a number or a list of strings.
type looseString string

// UnmarshalJSON implements json.Unmarshaler.
func (t *looseString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := normalize.Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		*t = looseString(strings.Join(parts, ", "))
		return nil
	}
	*t = looseString(normalize.Stringify(v))
	return nil
}

// extractedModule is the decode target for a model answer. The un-
// underscored learninggoals/assessmenttype keys are accepted as aliases.
type extractedModule struct {
	Title            looseString    `json:"title"`
	Credits          types.Credits  `json:"credits"`
	Workload         looseString    `json:"workload"`
	LearningGoals    *LearningGoals `json:"learning_goals"`
	LegacyGoals      *LearningGoals `json:"learninggoals"`
	AssessmentType   looseString    `json:"assessment_type"`
	LegacyAssessment looseString    `json:"assessmenttype"`
	Level            looseString    `json:"level"`
	Program          looseString    `json:"program"`
	Institution      looseString    `json:"institution"`
}

func (m extractedModule) record() types.ModuleRecord {
	goals := []string{}
	switch {
	case m.LearningGoals != nil && len(*m.LearningGoals) > 0:
		goals = append(goals, (*m.LearningGoals)...)
	case m.LegacyGoals != nil:
		goals = append(goals, (*m.LegacyGoals)...)
	}

	assessment := string(m.AssessmentType)
	if assessment == "" {
		assessment = string(m.LegacyAssessment)
	}

	return types.ModuleRecord{
		Title:          string(m.Title),
		Credits:        m.Credits,
		Workload:       string(m.Workload),
		LearningGoals:  goals,
		AssessmentType: assessment,
		Level:          string(m.Level),
		Program:        string(m.Program),
		Institution:    string(m.Institution),
	}
}

// decodeModule converts a model answer into a record. A list answer
// contributes its first element.
func decodeModule(raw json.RawMessage) (types.ModuleRecord, error) {
	if kindOf(raw) == "array" {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return types.ModuleRecord{}, err
		}
		if len(list) == 0 {
			return types.ModuleRecord{}, fmt.Errorf("model returned an empty list")
		}
		raw = list[0]
	}
	if k := kindOf(raw); k != "object" {
		return types.ModuleRecord{}, fmt.Errorf("model returned a JSON %s, want an object", k)
	}

	var m extractedModule
	if err := json.Unmarshal(raw, &m); err != nil {
		return types.ModuleRecord{}, err
	}
	return m.record(), nil
}
