// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/httputil"
	"github.com/pdiddy/recog-engine/internal/normalize"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// ChromaIndex queries a collection through the Chroma v2 REST API. Chroma
// v2 expects client-supplied embeddings, so both queries and upserts are
// embedded here first.
type ChromaIndex struct {
	baseURL      string
	tenant       string
	database     string
	collection   string
	collectionID string
	token        string
	client       *http.Client
	enc          encoder
	opts         options
}

// NewChroma connects to cfg.ChromaURL and resolves the collection id,
// creating the collection when it does not exist.
func NewChroma(ctx context.Context, cfg types.IndexConfig, embedder Embedder, opts ...Option) (*ChromaIndex, error) {
	base := strings.TrimRight(cfg.ChromaURL, "/")
	if base == "" {
		base = "http://localhost:8000"
	}
	c := &ChromaIndex{
		baseURL:    base + "/api/v2",
		tenant:     orDefault(cfg.ChromaTenant, "default_tenant"),
		database:   orDefault(cfg.ChromaDatabase, "default_database"),
		collection: orDefault(cfg.ChromaCollection, "modules"),
		token:      cfg.ChromaToken,
		client:     &http.Client{},
		enc:        newEncoder(embedder, cfg.Embedding),
		opts:       newOptions(opts),
	}

	id, err := c.getOrCreateCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving collection %s: %w", c.collection, err)
	}
	c.collectionID = id
	return c, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *ChromaIndex) databaseURL() string {
	return fmt.Sprintf("%s/tenants/%s/databases/%s",
		c.baseURL, url.PathEscape(c.tenant), url.PathEscape(c.database))
}

func (c *ChromaIndex) collectionURL() string {
	return c.databaseURL() + "/collections/" + url.PathEscape(c.collectionID)
}

// do sends a JSON request and decodes a JSON response into out when out
// is non-nil. A 404 maps to ErrNotFound.
func (c *ChromaIndex) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Chroma-Token", c.token)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0, httputil.WithLogger(c.opts.logger))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chroma returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding chroma response: %w", err)
	}
	return nil
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *ChromaIndex) getOrCreateCollection(ctx context.Context) (string, error) {
	var coll chromaCollection
	err := c.do(ctx, http.MethodGet, c.databaseURL()+"/collections/"+url.PathEscape(c.collection), nil, &coll)
	if err == nil && coll.ID != "" {
		c.opts.logger.Debug("using existing collection", zap.String("collection", c.collection))
		return coll.ID, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.opts.logger.Debug("collection lookup failed, trying create", zap.Error(err))
	}

	c.opts.logger.Info("creating collection", zap.String("collection", c.collection))
	payload := map[string]any{
		"name":          c.collection,
		"metadata":      map[string]any{"description": "module catalog", "hnsw:space": "cosine"},
		"get_or_create": true,
	}
	if err := c.do(ctx, http.MethodPost, c.databaseURL()+"/collections", payload, &coll); err != nil {
		return "", err
	}
	if coll.ID == "" {
		return "", fmt.Errorf("chroma returned a collection without id")
	}
	return coll.ID, nil
}

type chromaQueryResult struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]*string        `json:"documents"`
}

// SimilaritySearchWithScore implements Index.
func (c *ChromaIndex) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredEntry, error) {
	entries, err := c.query(ctx, query, k)
	c.opts.metrics.IndexQuery(err)
	if err != nil {
		return nil, err
	}
	c.opts.logger.Debug("index query",
		zap.String("backend", "chroma"), zap.Int("k", k), zap.Int("returned", len(entries)))
	return entries, nil
}

func (c *ChromaIndex) query(ctx context.Context, query string, k int) ([]ScoredEntry, error) {
	if k <= 0 {
		return []ScoredEntry{}, nil
	}
	vec, err := c.enc.query(ctx, query)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"query_embeddings": [][]float32{vec},
		"n_results":        k,
		"include":          []string{"metadatas", "documents", "distances"},
	}
	var res chromaQueryResult
	if err := c.do(ctx, http.MethodPost, c.collectionURL()+"/query", payload, &res); err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	out := []ScoredEntry{}
	if len(res.IDs) == 0 {
		return out, nil
	}
	for i, id := range res.IDs[0] {
		e := ScoredEntry{Entry: Entry{ID: id, Metadata: map[string]any{}}}
		if len(res.Distances) > 0 && i < len(res.Distances[0]) {
			e.Score = res.Distances[0][i]
		}
		if len(res.Metadatas) > 0 && i < len(res.Metadatas[0]) && res.Metadatas[0][i] != nil {
			e.Metadata = res.Metadatas[0][i]
		}
		if len(res.Documents) > 0 && i < len(res.Documents[0]) && res.Documents[0][i] != nil {
			e.Content = *res.Documents[0][i]
		}
		out = append(out, e)
	}
	return out, nil
}

// Upsert embeds and writes entries. Chroma metadata values must be
// scalars, so list values are joined and objects are stored as JSON.
func (c *ChromaIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	docs := make([]string, len(entries))
	metas := make([]map[string]any, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		docs[i] = e.Content
		metas[i] = scalarMetadata(e.Metadata)
	}
	vecs, err := c.enc.passages(ctx, docs)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"ids":        ids,
		"documents":  docs,
		"metadatas":  metas,
		"embeddings": vecs,
	}
	if err := c.do(ctx, http.MethodPost, c.collectionURL()+"/upsert", payload, nil); err != nil {
		return fmt.Errorf("upserting %d entries: %w", len(entries), err)
	}
	c.opts.logger.Debug("upserted entries", zap.Int("count", len(entries)))
	return nil
}

// Count returns the number of entries in the collection.
func (c *ChromaIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.do(ctx, http.MethodGet, c.collectionURL()+"/count", nil, &n); err != nil {
		return 0, fmt.Errorf("counting collection: %w", err)
	}
	return n, nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (c *ChromaIndex) Close() error { return nil }

func scalarMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		switch t := v.(type) {
		case nil:
		case string, bool, int, int64, float32, float64:
			out[k] = t
		case []any, []string:
			// Lists round-trip as JSON arrays; normalize.StringList decodes them.
			b, err := json.Marshal(t)
			if err != nil {
				out[k] = normalize.Stringify(t)
				continue
			}
			out[k] = string(b)
		default:
			out[k] = normalize.Stringify(t)
		}
	}
	return out
}
