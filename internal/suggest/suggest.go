// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package suggest ranks catalog modules similar to a query text. The order
// is the index's own ranking; this package only maps metadata into
// suggestion entries and drops candidates from other institutions.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/index"
	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/internal/metrics"
	"github.com/pdiddy/recog-engine/internal/normalize"
	"github.com/pdiddy/recog-engine/pkg/types"
)

// DefaultLimit is the number of neighbors requested when none is given.
const DefaultLimit = 5

// AllInstitutions disables the institution filter.
const AllInstitutions = "all"

// Ranker turns similarity search results into suggestion entries.
type Ranker struct {
	index   index.Index
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Ranker) { r.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Ranker) { r.metrics = m }
}

// New creates a Ranker over idx.
func New(idx index.Index, opts ...Option) *Ranker {
	r := &Ranker{index: idx, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Suggestions requests limit neighbors of doc and returns them in index
// order, minus candidates whose institution differs from institution.
// The result is never nil. Index failures are returned wrapped.
func (r *Ranker) Suggestions(ctx context.Context, doc, institution string, limit int) ([]types.SuggestionEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	hits, err := r.index.SimilaritySearchWithScore(ctx, doc, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	out := make([]types.SuggestionEntry, 0, len(hits))
	for _, hit := range hits {
		entry := Entry(hit.Entry)
		if !MatchesInstitution(entry.Institution, institution) {
			continue
		}
		out = append(out, entry)
	}

	r.logger.Debug("module suggestions",
		zap.Int("requested", limit),
		zap.Int("neighbors", len(hits)),
		zap.Int("returned", len(out)),
		zap.String("institution", institution))
	r.metrics.Suggestions(len(out))
	return out, nil
}

// Entry maps an index entry to a sealed suggestion. Missing or malformed
// metadata yields empty fields.
func Entry(e index.Entry) types.SuggestionEntry {
	md := e.Metadata
	if md == nil {
		md = map[string]any{}
	}
	s := types.SuggestionEntry{
		ID:             e.ID,
		Title:          normalize.String(md, "title", "name"),
		Credits:        normalize.Credits(md),
		Workload:       normalize.ParseWorkload(md),
		Description:    normalize.String(md, "description", "learning_outcomes"),
		LearningGoals:  normalize.StringList(md, "learning_goals", "learninggoals"),
		AssessmentType: normalize.String(md, "assessment_type", "assessmenttype"),
		Level:          normalize.String(md, "level"),
		Program:        normalize.CollectPrograms(md),
		Institution:    normalize.String(md, "institution"),
		Content:        e.Content,
	}
	s.Seal()
	return s
}

// MatchesInstitution reports whether a candidate survives the filter for
// the requested institution. A blank request or "all" matches
// everything, and a candidate without an institution is never excluded.
// A whitespace-only candidate institution counts as present. Comparison
// ignores case and surrounding whitespace.
func MatchesInstitution(candidate, requested string) bool {
	requested = strings.TrimSpace(requested)
	if requested == "" || strings.EqualFold(requested, AllInstitutions) {
		return true
	}
	if candidate == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(candidate), requested)
}
