// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/recog-engine/pkg/types"
)

// letterEmbedder embeds text as a 26-dimensional letter histogram, so
// texts sharing letters are close.
type letterEmbedder struct {
	mu    sync.Mutex
	seen  []string
	fails bool
}

func (l *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	l.mu.Lock()
	l.seen = append(l.seen, texts...)
	l.mu.Unlock()
	if l.fails {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

func newTestSQLite(t *testing.T, emb Embedder, cfg types.EmbeddingConfig) *SQLiteIndex {
	t.Helper()
	s, err := NewSQLite(types.IndexConfig{
		SQLitePath: filepath.Join(t.TempDir(), "idx", "modules.db"),
		Embedding:  cfg,
	}, emb)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, cosineDistance([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 2.0, cosineDistance([]float32{0, 0}, []float32{1, 2}))
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestSQLiteUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, &letterEmbedder{}, types.EmbeddingConfig{})

	require.NoError(t, s.Upsert(ctx, []Entry{
		{ID: "a", Content: "aaaa", Metadata: map[string]any{"title": "A", "credits": 5}},
		{ID: "b", Content: "bbbb", Metadata: map[string]any{"title": "B"}},
		{ID: "ab", Content: "aabb"},
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.SimilaritySearchWithScore(ctx, "aaa", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "ab", got[1].ID)
	assert.LessOrEqual(t, got[0].Score, got[1].Score)
	assert.Equal(t, "A", got[0].Metadata["title"])
	assert.Equal(t, float64(5), got[0].Metadata["credits"])
	assert.Equal(t, "aaaa", got[0].Content)
	assert.NotNil(t, got[1].Metadata)

	// Upsert replaces by id.
	require.NoError(t, s.Upsert(ctx, []Entry{{ID: "a", Content: "bbbb"}}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	e, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "bbbb", e.Content)
}

func TestSQLiteSearchEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, &letterEmbedder{}, types.EmbeddingConfig{})

	got, err := s.SimilaritySearchWithScore(ctx, "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = s.SimilaritySearchWithScore(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteAppliesPrefixes(t *testing.T) {
	ctx := context.Background()
	emb := &letterEmbedder{}
	s := newTestSQLite(t, emb, types.EmbeddingConfig{QueryPrefix: "query: ", PassagePrefix: "passage: "})

	require.NoError(t, s.Upsert(ctx, []Entry{{ID: "x", Content: "text"}}))
	_, err := s.SimilaritySearchWithScore(ctx, "q", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"passage: text", "query: q"}, emb.seen)
}

func TestSQLiteEmbedderFailure(t *testing.T) {
	s := newTestSQLite(t, &letterEmbedder{fails: true}, types.EmbeddingConfig{})
	_, err := s.SimilaritySearchWithScore(context.Background(), "q", 1)
	assert.ErrorContains(t, err, "embedder down")
	assert.Error(t, s.Upsert(context.Background(), []Entry{{ID: "x", Content: "y"}}))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- id: m1
  content: Analysis I
  metadata:
    title: Analysis I
    credits: 5
    programs: [Informatik, Mathematik]
- metadata:
    name: Programmieren
    learning_outcomes: Grundlagen der Programmierung
`), 0o644))

	entries, err := LoadCatalog(yamlPath)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "m1", entries[0].ID)
	assert.Equal(t, 5, entries[0].Metadata["credits"])
	assert.NotEmpty(t, entries[1].ID)
	assert.Equal(t, "Programmieren\nGrundlagen der Programmierung", entries[1].Content)

	jsonPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"id":"j1","content":"c","metadata":{"title":"T"}}]`), 0o644))
	entries, err = LoadCatalog(jsonPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T", entries[0].Metadata["title"])

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteCatalogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := []Entry{{ID: "m1", Content: "c", Metadata: map[string]any{"title": "T"}}}

	for _, format := range []string{"json", "yaml"} {
		var buf bytes.Buffer
		require.NoError(t, WriteCatalog(&buf, entries, format))
		path := filepath.Join(dir, "out."+format)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

		got, err := LoadCatalog(path)
		require.NoError(t, err, format)
		assert.Equal(t, entries, got, format)
	}

	assert.Error(t, WriteCatalog(&bytes.Buffer{}, entries, "xml"))
}

// recordingStore is a Store fake for Import.
type recordingStore struct {
	batches [][]Entry
	failOn  string
}

func (r *recordingStore) SimilaritySearchWithScore(context.Context, string, int) ([]ScoredEntry, error) {
	return nil, nil
}

func (r *recordingStore) Upsert(_ context.Context, entries []Entry) error {
	for _, e := range entries {
		if e.ID == r.failOn {
			return errors.New("rejected")
		}
	}
	r.batches = append(r.batches, entries)
	return nil
}

func (r *recordingStore) Count(context.Context) (int, error) { return 0, nil }
func (r *recordingStore) Close() error                       { return nil }

func TestImport(t *testing.T) {
	entries := []Entry{
		{ID: "1", Content: "a"},
		{ID: "2", Content: "b"},
		{ID: "3", Content: " "},
		{ID: "4", Content: "d"},
		{ID: "5", Content: "e"},
	}
	store := &recordingStore{failOn: "5"}
	var out bytes.Buffer

	summary, err := Import(context.Background(), store, entries, 2, &out)
	require.NoError(t, err)

	assert.Equal(t, ImportSummary{Indexed: 2, Skipped: 1, Failed: 2}, summary)
	assert.Equal(t, 5, summary.Total())
	require.Len(t, store.batches, 1)
	assert.Equal(t, []string{"1", "2"}, []string{store.batches[0][0].ID, store.batches[0][1].ID})
	assert.Contains(t, out.String(), "skipped 3: no content")
	assert.Contains(t, out.String(), "failed  2 entries (4..): rejected")
	assert.Contains(t, out.String(), "indexed: 2, skipped: 1, failed: 2")
}

func TestImportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Import(ctx, &recordingStore{}, []Entry{{ID: "1", Content: "a"}}, 1, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIEmbedder(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		// Answer out of order to exercise index placement.
		w.Write([]byte(`{"data":[{"embedding":[0,1],"index":1},{"embedding":[1,0],"index":0}]}`))
	}))
	defer ts.Close()

	e := &OpenAIEmbedder{BaseURL: ts.URL + "/v1/", APIKey: "k", Model: "e5", Client: ts.Client()}
	vecs, err := e.Embed(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, []string{"x", "y"}, gotBody.Input)
	assert.Equal(t, "e5", gotBody.Model)
}

func TestOpenAIEmbedderErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer ts.Close()

	e := &OpenAIEmbedder{BaseURL: ts.URL, Client: ts.Client()}
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "400")

	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(types.EmbeddingConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, e)

	e, err = NewEmbedder(types.EmbeddingConfig{Provider: "genai"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &GenAIEmbedder{}, e)

	e, err = NewEmbedder(types.EmbeddingConfig{Provider: "cohere"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CohereEmbedder{}, e)
	assert.Equal(t, defaultCohereModel, e.(*CohereEmbedder).model)

	_, err = NewEmbedder(types.EmbeddingConfig{Provider: "voyage"}, nil)
	assert.Error(t, err)
}

func TestCohereEmbedder(t *testing.T) {
	var inputTypes []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embed"), r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var body struct {
			Texts     []string `json:"texts"`
			Model     string   `json:"model"`
			InputType string   `json:"input_type"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "embed-english-v3.0", body.Model)
		inputTypes = append(inputTypes, body.InputType)

		vecs := make([][]float64, len(body.Texts))
		for i := range vecs {
			vecs[i] = []float64{float64(i), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "emb-1",
			"embeddings": map[string]any{"float": vecs},
			"texts":      body.Texts,
		})
	}))
	defer ts.Close()

	e := NewCohereEmbedder("k", "embed-english-v3.0", ts.URL)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, vecs)

	enc := newEncoder(e, types.EmbeddingConfig{QueryPrefix: "query: "})
	q, err := enc.query(context.Background(), "Analysis")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, q)

	assert.Equal(t, []string{"search_document", "search_query"}, inputTypes)

	empty, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
