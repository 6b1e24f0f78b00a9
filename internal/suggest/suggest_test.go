// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recog-engine/internal/index"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// fakeIndex returns fixed hits and records the last query.
type fakeIndex struct {
	hits  []index.ScoredEntry
	err   error
	query string
	k     int
}

func (f *fakeIndex) SimilaritySearchWithScore(_ context.Context, query string, k int) ([]index.ScoredEntry, error) {
	f.query, f.k = query, k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func hit(id, institution string, score float64) index.ScoredEntry {
	md := map[string]any{"title": "Modul " + id}
	if institution != "" {
		md["institution"] = institution
	}
	return index.ScoredEntry{Entry: index.Entry{ID: id, Content: "Inhalt " + id, Metadata: md}, Score: score}
}

func ids(entries []types.SuggestionEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSuggestionsInstitutionFilter(t *testing.T) {
	idx := &fakeIndex{hits: []index.ScoredEntry{
		hit("1", "Technische Hochschule Lübeck", 0.1),
		hit("2", "Universität Bielefeld", 0.2),
	}}
	r := New(idx)
	ctx := context.Background()

	tests := []struct {
		name        string
		institution string
		want        []string
	}{
		{"exact", "Technische Hochschule Lübeck", []string{"1"}},
		{"case insensitive", "TECHNISCHE HOCHSCHULE LÜBECK", []string{"1"}},
		{"all", "all", []string{"1", "2"}},
		{"ALL", "ALL", []string{"1", "2"}},
		{"none", "", []string{"1", "2"}},
		{"no match", "Hochschule Anderswo", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Suggestions(ctx, "query", tt.institution, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSuggestionsKeepsCandidatesWithoutInstitution(t *testing.T) {
	idx := &fakeIndex{hits: []index.ScoredEntry{
		hit("1", "Universität Bielefeld", 0.1),
		hit("2", "", 0.2),
		hit("3", "Technische Hochschule Lübeck", 0.3),
	}}
	got, err := New(idx).Suggestions(context.Background(), "q", "technische hochschule lübeck", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(got))
}

func TestMatchesInstitution(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		requested string
		want      bool
	}{
		{"same", "TH Lübeck", "th lübeck", true},
		{"padded candidate", "  TH Lübeck ", "TH Lübeck", true},
		{"other", "Universität Bielefeld", "TH Lübeck", false},
		{"missing candidate kept", "", "TH Lübeck", true},
		{"whitespace candidate is present", " ", "TH Lübeck", false},
		{"blank request", "Universität Bielefeld", "  ", true},
		{"all", "Universität Bielefeld", "All", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesInstitution(tt.candidate, tt.requested))
		})
	}
}

func TestSuggestionsEmptyIndex(t *testing.T) {
	got, err := New(&fakeIndex{}).Suggestions(context.Background(), "q", "", 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSuggestionsLimit(t *testing.T) {
	idx := &fakeIndex{}
	_, err := New(idx).Suggestions(context.Background(), "Titel: \nAnalysis\n", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, idx.k)
	assert.Equal(t, "Titel: \nAnalysis\n", idx.query)

	_, err = New(idx).Suggestions(context.Background(), "q", "", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.k)
}

func TestSuggestionsIndexError(t *testing.T) {
	_, err := New(&fakeIndex{err: errors.New("chroma down")}).Suggestions(context.Background(), "q", "", 5)
	assert.ErrorContains(t, err, "chroma down")
}

func TestEntryMapsMetadata(t *testing.T) {
	e := Entry(index.Entry{
		ID:      "m1",
		Content: "Analysis I: Folgen und Reihen",
		Metadata: map[string]any{
			"name":              "Analysis I",
			"credits":           "7,5",
			"duration":          "P0Y1M0DT90H0M0S",
			"learning_outcomes": "Grenzwerte verstehen",
			"programs":          []any{"Informatik", "Mathematik"},
			"level":             "Bachelor",
			"institution":       "Universität Bielefeld",
		},
	})

	assert.Equal(t, "m1", e.ID)
	assert.Equal(t, "Analysis I", e.Title)
	assert.Equal(t, types.NewCredits(7.5), e.Credits)
	assert.Equal(t, "90 Stunden", e.Workload)
	assert.Equal(t, "Grenzwerte verstehen", e.Description)
	assert.Equal(t, "Informatik, Mathematik", e.Program)
	assert.Equal(t, "Bachelor", e.Level)
	assert.Equal(t, "Universität Bielefeld", e.Institution)
	assert.Equal(t, "Analysis I: Folgen und Reihen", e.Content)

	var sealed map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.JSON), &sealed))
	assert.Equal(t, "Analysis I", sealed["title"])
	assert.Equal(t, 7.5, sealed["credits"])
	assert.NotContains(t, sealed, "json")
}

func TestEntryToleratesMissingMetadata(t *testing.T) {
	e := Entry(index.Entry{ID: "x", Content: "c"})
	assert.Empty(t, e.Title)
	assert.False(t, e.Credits.Valid)
	assert.Empty(t, e.Workload)
	assert.Empty(t, e.Program)
	assert.NotEmpty(t, e.JSON)
}

func TestEntryCreditEstimateTruncates(t *testing.T) {
	e := Entry(index.Entry{Metadata: map[string]any{"credits": 2.5}})
	assert.Equal(t, "~60 Stunden", e.Workload)
}
