// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/examine"
	"github.com/pdiddy/recog-engine/internal/extract"
	"github.com/pdiddy/recog-engine/internal/index"
	"github.com/pdiddy/recog-engine/internal/llm"
	"github.com/pdiddy/recog-engine/internal/metrics"
	"github.com/pdiddy/recog-engine/internal/recognition"
	"github.com/pdiddy/recog-engine/internal/suggest"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// app is the composition root: every component is built here from the
// resolved config and handed to the commands.
type app struct {
	cfg     types.Config
	logger  *zap.Logger
	metrics *metrics.Recorder

	extractor *extract.Extractor
	judge     *examine.Judge
	store     index.Store
	ranker    *suggest.Ranker
	service   *recognition.Service
}

// newApp builds the LLM components. The index is opened only when
// withIndex is set, so extraction and examination run without one.
func newApp(ctx context.Context, cfg types.Config, withIndex bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	backend, err := llm.NewBackend(cfg.LLM)
	if err != nil {
		return nil, err
	}
	llmCfg := cfg.LLM.Defaulted()
	gateway := llm.NewGateway(backend, llmCfg,
		llm.WithLogger(a.logger.Named("llm")),
		llm.WithMetrics(a.metrics))

	a.extractor = extract.New(gateway.WithMaxTokens(llmCfg.ExtractionMaxTokens),
		extract.WithLogger(a.logger.Named("extract")),
		extract.WithMetrics(a.metrics))

	rcfg := cfg.Recognition.Defaulted()
	a.judge = examine.New(gateway.WithModel(llmCfg.JudgmentModel).WithMaxTokens(llmCfg.JudgmentMaxTokens),
		examine.WithAttribution(rcfg.AttributionModel, rcfg.AttributionProvider),
		examine.WithLogger(a.logger.Named("examine")),
		examine.WithMetrics(a.metrics))

	if withIndex {
		store, err := openStore(ctx, cfg.Index, a.logger, a.metrics)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.ranker = suggest.New(store,
			suggest.WithLogger(a.logger.Named("suggest")),
			suggest.WithMetrics(a.metrics))
		a.service = recognition.NewService(a.extractor, a.ranker, a.judge, rcfg, a.logger.Named("recognition"))
	}
	return a, nil
}

func openStore(ctx context.Context, cfg types.IndexConfig, logger *zap.Logger, m *metrics.Recorder) (index.Store, error) {
	embedder, err := index.NewEmbedder(cfg.Embedding, logger.Named("embed"))
	if err != nil {
		return nil, err
	}
	store, err := index.Open(ctx, cfg, embedder,
		index.WithLogger(logger.Named("index")),
		index.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("opening %s index: %w", cfg.Backend, err)
	}
	return store, nil
}

// selectService returns the recognition service, or one without a ranker
// when no index was opened. Select does not rank.
func (a *app) selectService() *recognition.Service {
	if a.service != nil {
		return a.service
	}
	return recognition.NewService(a.extractor, nil, a.judge, a.cfg.Recognition, a.logger.Named("recognition"))
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
