// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index provides the similarity index the suggestion ranker
// queries: a Chroma v2 REST collection or a local SQLite catalog ranked by
// cosine distance. Both embed text client-side through an Embedder.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/metrics"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// ErrNotFound reports a missing entry or collection.
var ErrNotFound = errors.New("not found")

// Entry is one indexed module: its text and its catalog metadata.
type Entry struct {
	ID       string         `json:"id" yaml:"id"`
	Content  string         `json:"content" yaml:"content"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
}

// ScoredEntry pairs an entry with its distance to the query. Lower is
// closer.
type ScoredEntry struct {
	Entry `yaml:",inline"`
	Score float64 `json:"score" yaml:"score"`
}

// Index answers nearest-neighbor queries. Results are ordered closest
// first.
type Index interface {
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredEntry, error)
}

// Store is an Index that can also be written to.
type Store interface {
	Index
	Upsert(ctx context.Context, entries []Entry) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Option configures an index implementation.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

// Open constructs the store selected by cfg.Backend.
func Open(ctx context.Context, cfg types.IndexConfig, embedder Embedder, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case types.IndexChroma, "":
		return NewChroma(ctx, cfg, embedder, opts...)
	case types.IndexSQLite:
		return NewSQLite(cfg, embedder, opts...)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

// cosineDistance returns 1 - cos(a, b). Vectors of different length or
// zero norm are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
