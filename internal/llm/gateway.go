// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps chat-completion backends behind a single blocking
// Invoke call. The only failure the gateway heals on its own is a backend
// whose synchronous path is unavailable: the call is re-issued on the
// backend's asynchronous path and the gateway waits for it. Every other
// error is returned to the caller as the backend produced it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/internal/metrics"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// ErrSyncUnavailable reports that a backend cannot serve a synchronous
// request. The gateway recovers from it via AsyncBackend.
var ErrSyncUnavailable = errors.New("sync client is not available")

// ErrEmptyResponse reports a completion without any text content.
var ErrEmptyResponse = errors.New("empty completion")

// Role tags a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "user"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// Human builds a human (user) message.
func Human(content string) Message { return Message{Role: RoleHuman, Content: content} }

// Response is a completed chat turn.
type Response struct {
	Content string
}

// Request is what a backend receives for one call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Backend performs a synchronous chat completion.
type Backend interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Result carries the outcome of an asynchronous completion.
type Result struct {
	Response Response
	Err      error
}

// AsyncBackend is implemented by backends that can complete a request on
// a separate execution path. The channel delivers exactly one Result.
type AsyncBackend interface {
	CompleteAsync(ctx context.Context, req Request) <-chan Result
}

// Invoker is the contract the pipeline stages depend on.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message) (Response, error)
}

// Gateway binds a backend to a model, temperature and output budget.
// A Gateway is immutable; WithMaxTokens and WithModel return copies, so
// each call site can hold its own budget without shared state.
type Gateway struct {
	backend     Backend
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
	metrics     *metrics.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a gateway with the model, temperature and default
// budget taken from cfg.
func NewGateway(backend Backend, cfg types.LLMConfig, opts ...Option) *Gateway {
	cfg = cfg.Defaulted()
	g := &Gateway{
		backend:     backend,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.DefaultMaxTokens,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithMaxTokens returns a copy of g with a different output budget.
func (g *Gateway) WithMaxTokens(n int) *Gateway {
	c := *g
	if n > 0 {
		c.maxTokens = n
	}
	return &c
}

// WithModel returns a copy of g bound to another model. An empty model
// keeps the current one.
func (g *Gateway) WithModel(model string) *Gateway {
	c := *g
	if model != "" {
		c.model = model
	}
	return &c
}

// Model returns the bound model identifier.
func (g *Gateway) Model() string { return g.model }

// MaxTokens returns the bound output budget.
func (g *Gateway) MaxTokens() int { return g.maxTokens }

// Invoke sends messages and blocks until a response or an error arrives.
func (g *Gateway) Invoke(ctx context.Context, messages []Message) (Response, error) {
	req := Request{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	start := time.Now()
	resp, err := g.backend.Complete(ctx, req)
	if errors.Is(err, ErrSyncUnavailable) {
		if async, ok := g.backend.(AsyncBackend); ok {
			g.logger.Info("sync client unavailable, invoking async path",
				zap.String("model", g.model))
			g.metrics.LLMAsyncFallback()
			resp, err = wait(ctx, async.CompleteAsync(ctx, req))
		}
	}
	g.metrics.LLMRequest(err, time.Since(start))
	if err != nil {
		return Response{}, err
	}

	g.logger.Debug("completion received",
		zap.String("model", g.model),
		zap.Int("max_tokens", g.maxTokens),
		zap.Int("chars", len(resp.Content)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func wait(ctx context.Context, ch <-chan Result) (Response, error) {
	select {
	case r, ok := <-ch:
		if !ok {
			return Response{}, ErrEmptyResponse
		}
		return r.Response, r.Err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// NewBackend constructs the backend selected by cfg.Provider.
func NewBackend(cfg types.LLMConfig) (Backend, error) {
	switch cfg.Defaulted().Provider {
	case types.ProviderOpenAI:
		return &OpenAIBackend{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			StreamOnly: cfg.StreamOnly,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, nil
	case types.ProviderGenAI:
		return &GenAIBackend{APIKey: cfg.APIKey}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: use openai or genai", cfg.Provider)
	}
}
