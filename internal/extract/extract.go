// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns free-text module descriptions into structured
// module records with a chat model. Extraction never fails from the
// caller's point of view: when the model call, the JSON parse or the field
// repair fails, a fallback record carrying the raw text and the error
// message is returned instead.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/llm"
	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/internal/metrics"
	"github.com/pdiddy/recog-engine/internal/normalize"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// Extractor extracts module records through an llm.Invoker.
type Extractor struct {
	llm     llm.Invoker
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Extractor) { e.metrics = m }
}

// New creates an Extractor. The invoker should carry the extraction
// output budget.
func New(invoker llm.Invoker, opts ...Option) *Extractor {
	e := &Extractor{llm: invoker, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModuleInfo extracts a module record from raw. A JSON object input is
// first flattened into "key: value" lines. The returned record always has
// RawDocument set to the normalized text; on failure it also has
// Description set to that text and Error set to the failure message.
func (e *Extractor) ModuleInfo(ctx context.Context, raw string) types.ModuleRecord {
	doc := NormalizeInput(raw)

	record, err := e.extract(ctx, doc)
	if err != nil {
		e.logger.Warn("module extraction failed, falling back to raw text", zap.Error(err))
		e.metrics.Extraction(true)
		return Fallback(doc, err)
	}

	record.RawDocument = doc
	record.OriginalDoc = doc
	e.logger.Info("extracted module info", zap.String("title", record.Title))
	e.metrics.Extraction(false)
	return record
}

func (e *Extractor) extract(ctx context.Context, doc string) (types.ModuleRecord, error) {
	messages, err := renderPrompt(doc)
	if err != nil {
		return types.ModuleRecord{}, err
	}
	resp, err := e.llm.Invoke(ctx, messages)
	if err != nil {
		return types.ModuleRecord{}, err
	}
	raw, err := extractRaw(resp.Content)
	if err != nil {
		return types.ModuleRecord{}, err
	}
	return decodeModule(raw)
}

// Fallback builds the record returned when extraction fails.
func Fallback(doc string, err error) types.ModuleRecord {
	return types.ModuleRecord{
		LearningGoals: []string{},
		Description:   doc,
		RawDocument:   doc,
		OriginalDoc:   doc,
		Error:         err.Error(),
	}
}

// NormalizeInput flattens a JSON object into one "key: value" line per
// key, in document order. Any other input, including JSON that is not an
// object, is returned unchanged.
func NormalizeInput(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return raw
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	if _, err := dec.Token(); err != nil {
		return raw
	}
	var b strings.Builder
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return raw
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return raw
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(normalize.Stringify(v))
		b.WriteString("\n")
	}
	return b.String()
}
