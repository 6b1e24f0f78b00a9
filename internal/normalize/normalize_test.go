// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWorkload(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{
			name:     "iso duration with calendar month counts fixed part only",
			metadata: map[string]any{"duration": "P0Y1M0DT90H0M0S"},
			want:     "90 Stunden",
		},
		{
			name:     "iso duration in workload field",
			metadata: map[string]any{"workload": "P0Y1M0DT60H0M0S"},
			want:     "60 Stunden",
		},
		{
			name:     "duration preferred over workload",
			metadata: map[string]any{"duration": "P0Y1M0DT90H0M0S", "workload": "P0Y1M0DT60H0M0S"},
			want:     "90 Stunden",
		},
		{
			name:     "days and minutes are converted",
			metadata: map[string]any{"duration": "P2DT90M"},
			want:     "49 Stunden",
		},
		{
			name:     "partial hours truncate",
			metadata: map[string]any{"duration": "PT150M"},
			want:     "2 Stunden",
		},
		{
			name:     "credits estimate",
			metadata: map[string]any{"credits": 5.0},
			want:     "~150 Stunden",
		},
		{
			name:     "fractional credits truncate before multiplying",
			metadata: map[string]any{"credits": 2.5},
			want:     "~60 Stunden",
		},
		{
			name:     "numeric string credits",
			metadata: map[string]any{"credits": "6"},
			want:     "~180 Stunden",
		},
		{
			name:     "invalid duration falls back to credits",
			metadata: map[string]any{"duration": "invalid", "credits": 4},
			want:     "~120 Stunden",
		},
		{
			name:     "non-string duration falls back to credits",
			metadata: map[string]any{"duration": 90, "credits": 3.0},
			want:     "~90 Stunden",
		},
		{
			name:     "empty duration falls through to workload",
			metadata: map[string]any{"duration": "", "workload": "PT30H"},
			want:     "30 Stunden",
		},
		{
			name:     "zero credits yield nothing",
			metadata: map[string]any{"credits": 0.0},
			want:     "",
		},
		{
			name:     "nothing to go on",
			metadata: map[string]any{"title": "Module"},
			want:     "",
		},
		{
			name:     "nil metadata",
			metadata: nil,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWorkload(tt.metadata))
		})
	}
}

func TestCollectPrograms(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{"list of strings", map[string]any{"programs": []string{"A", "B"}}, "A, B"},
		{"decoded json list", map[string]any{"programs": []any{"Computer Science", "Data Science"}}, "Computer Science, Data Science"},
		{"scalar program", map[string]any{"program": "X"}, "X"},
		{"empty list falls back to program", map[string]any{"programs": []any{}, "program": "Business"}, "Business"},
		{"empty list alone", map[string]any{"programs": []any{}}, ""},
		{"nil programs", map[string]any{"programs": nil}, ""},
		{"absent", map[string]any{}, ""},
		{"json list stored as string", map[string]any{"programs": `["Informatik","Data Science"]`}, "Informatik, Data Science"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectPrograms(tt.metadata))
		})
	}
}

func TestString(t *testing.T) {
	md := map[string]any{"title": "", "name": "Analysis I", "level": 7.0}

	assert.Equal(t, "Analysis I", String(md, "title", "name"))
	assert.Equal(t, "7", String(md, "level"))
	assert.Equal(t, "", String(md, "missing"))
}

func TestCredits(t *testing.T) {
	assert.Equal(t, 5.0, Credits(map[string]any{"credits": 5}).Value)
	assert.True(t, Credits(map[string]any{"credits": "7,5 ECTS"}).Valid)
	assert.Equal(t, 7.5, Credits(map[string]any{"credits": "7,5 ECTS"}).Value)
	assert.False(t, Credits(map[string]any{}).Valid)
	assert.False(t, Credits(map[string]any{"credits": "viele"}).Valid)
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"G1", "G2"}, StringList(map[string]any{"learning_goals": []any{"G1", "G2"}}, "learning_goals"))
	assert.Equal(t, []string{"G1", "G2"}, StringList(map[string]any{"learning_goals": `["G1","G2"]`}, "learning_goals"))
	assert.Equal(t, []string{"one goal"}, StringList(map[string]any{"learning_goals": "one goal"}, "learning_goals"))
	assert.Equal(t, []string{"Modelle bewerten, vergleichen", "5"},
		StringList(map[string]any{"learning_goals": `["Modelle bewerten, vergleichen", 5]`}, "learning_goals"))
	assert.Nil(t, StringList(map[string]any{}, "learning_goals"))
}
