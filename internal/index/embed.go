// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/recog-engine/internal/httputil"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder constructs the embedder selected by cfg.Provider.
func NewEmbedder(cfg types.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case "openai", "":
		return &OpenAIEmbedder{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		}, nil
	case "genai":
		return &GenAIEmbedder{APIKey: cfg.APIKey, Model: cfg.Model}, nil
	case "cohere":
		return NewCohereEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// QueryEmbedder is implemented by embedders whose provider distinguishes
// search queries from indexed documents.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// encoder applies the query and passage prefixes some embedding models
// expect (e5: "query: ", "passage: ") before calling the embedder.
type encoder struct {
	embedder      Embedder
	queryPrefix   string
	passagePrefix string
}

func newEncoder(e Embedder, cfg types.EmbeddingConfig) encoder {
	return encoder{embedder: e, queryPrefix: cfg.QueryPrefix, passagePrefix: cfg.PassagePrefix}
}

func (e encoder) query(ctx context.Context, text string) ([]float32, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("embeddings provider not configured")
	}
	if q, ok := e.embedder.(QueryEmbedder); ok {
		v, err := q.EmbedQuery(ctx, e.queryPrefix+text)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		return v, nil
	}
	vecs, err := e.embedder.Embed(ctx, []string{e.queryPrefix + text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors, want 1", len(vecs))
	}
	return vecs[0], nil
}

func (e encoder) passages(ctx context.Context, texts []string) ([][]float32, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("embeddings provider not configured")
	}
	in := make([]string, len(texts))
	for i, t := range texts {
		in[i] = e.passagePrefix + t
	}
	vecs, err := e.embedder.Embed(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("embedding passages: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding passages: got %d vectors, want %d", len(vecs), len(texts))
	}
	return vecs, nil
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. HTTP 429
// responses are retried with backoff.
type OpenAIEmbedder struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
	Logger     *zap.Logger
}

const defaultEmbeddingModel = "text-embedding-3-small"

func (o *OpenAIEmbedder) endpoint() string {
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return base + "/embeddings"
}

// Embed implements Embedder.
func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	model := o.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	body, err := json.Marshal(map[string]any{"input": texts, "model": model})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries, httputil.WithLogger(o.Logger))
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(parsed.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

// GenAIEmbedder calls Gemini's embedContent through the genai SDK.
type GenAIEmbedder struct {
	APIKey string
	Model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

func (g *GenAIEmbedder) models(ctx context.Context) (*genai.Models, error) {
	g.once.Do(func() {
		if g.APIKey == "" {
			g.initErr = fmt.Errorf("GenAI API key is required")
			return
		}
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.initErr != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", g.initErr)
	}
	return g.client.Models, nil
}

// Embed implements Embedder.
func (g *GenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	models, err := g.models(ctx)
	if err != nil {
		return nil, err
	}
	model := g.Model
	if model == "" {
		model = "gemini-embedding-001"
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

const defaultCohereModel = "embed-multilingual-v3.0"

// CohereEmbedder calls Cohere's v2 embed API. Passages are embedded as
// search documents and queries as search queries.
type CohereEmbedder struct {
	client *cohereclient.Client
	model  string
}

// NewCohereEmbedder builds a client for apiKey. An empty baseURL uses
// Cohere's public endpoint.
func NewCohereEmbedder(apiKey, model, baseURL string) *CohereEmbedder {
	if model == "" || !strings.HasPrefix(model, "embed-") {
		model = defaultCohereModel
	}
	hc := &http.Client{Timeout: 60 * time.Second}
	if baseURL == "" {
		return &CohereEmbedder{
			client: cohereclient.NewClient(cohereclient.WithToken(apiKey), cohereclient.WithHTTPClient(hc)),
			model:  model,
		}
	}
	return &CohereEmbedder{
		client: cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(hc),
			cohereclient.WithBaseURL(strings.TrimRight(baseURL, "/")),
		),
		model: model,
	}
}

// Embed implements Embedder.
func (c *CohereEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, cohere.EmbedInputTypeSearchDocument)
}

// EmbedQuery implements QueryEmbedder.
func (c *CohereEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text}, cohere.EmbedInputTypeSearchQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *CohereEmbedder) embed(ctx context.Context, texts []string, inputType cohere.EmbedInputType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      inputType,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed failed: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, fmt.Errorf("cohere embed returned no float embeddings")
	}
	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(floats), len(texts))
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
