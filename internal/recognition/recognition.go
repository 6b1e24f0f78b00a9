// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recognition runs the two steps of a recognition request: find
// catalog modules similar to an external module description, then judge
// the external module against the internal module the user selected.
package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/internal/logging"
	"github.com/pdiddy/recog-engine/pkg/types"
)

var (
	// ErrEmptyInput reports a request without module text.
	ErrEmptyInput = errors.New("no module text given")

	// ErrInvalidModule reports a module document that is not a JSON object.
	ErrInvalidModule = errors.New("invalid module document")

	// ErrNoSuggestions reports that the index returned no candidates.
	ErrNoSuggestions = errors.New("no matching modules found")
)

// Extractor produces module records from text.
type Extractor interface {
	ModuleInfo(ctx context.Context, raw string) types.ModuleRecord
}

// Ranker produces suggestions for a query text.
type Ranker interface {
	Suggestions(ctx context.Context, doc, institution string, limit int) ([]types.SuggestionEntry, error)
}

// Examiner judges an external module against an internal one.
type Examiner interface {
	Examine(ctx context.Context, internalJSON, externalJSON string) (string, error)
}

// Service composes extraction, ranking and examination.
type Service struct {
	extractor Extractor
	ranker    Ranker
	examiner  Examiner
	cfg       types.RecognitionConfig
	logger    *zap.Logger
}

// NewService creates a Service. cfg is defaulted.
func NewService(e Extractor, r Ranker, x Examiner, cfg types.RecognitionConfig, logger *zap.Logger) *Service {
	return &Service{
		extractor: e,
		ranker:    r,
		examiner:  x,
		cfg:       cfg.Defaulted(),
		logger:    logging.OrNop(logger),
	}
}

// FindResult is the outcome of Find.
type FindResult struct {
	External     types.ModuleRecord      `json:"external_module" yaml:"external_module"`
	ExternalJSON string                  `json:"external_module_json" yaml:"external_module_json"`
	Query        string                  `json:"query" yaml:"query"`
	Suggestions  []types.SuggestionEntry `json:"suggestions" yaml:"suggestions"`
}

// Find extracts the external module from text and ranks catalog modules
// against it. text is cut to the configured maximum length first. An
// empty institution falls back to the configured default.
func (s *Service) Find(ctx context.Context, text, institution string) (FindResult, error) {
	text = Truncate(text, s.cfg.MaxInputChars)
	if strings.TrimSpace(text) == "" {
		return FindResult{}, ErrEmptyInput
	}

	external := s.extractor.ModuleInfo(ctx, text)
	if external.Failed() {
		s.logger.Warn("external module extraction fell back to raw text", zap.String("error", external.Error))
	}

	query := Query(external)
	if query == "" {
		query = external.RawDocument
	}
	if institution == "" {
		institution = s.cfg.Institution
	}

	suggestions, err := s.ranker.Suggestions(ctx, query, institution, s.cfg.SuggestionLimit)
	if err != nil {
		return FindResult{}, fmt.Errorf("ranking suggestions: %w", err)
	}

	return FindResult{
		External:     external,
		ExternalJSON: external.JSON(),
		Query:        query,
		Suggestions:  suggestions,
	}, nil
}

// SelectResult is the outcome of Select.
type SelectResult struct {
	Internal        map[string]any `json:"internal_module" yaml:"internal_module"`
	External        map[string]any `json:"external_module" yaml:"external_module"`
	InternalJSON    string         `json:"internal_module_json" yaml:"internal_module_json"`
	ExternalJSON    string         `json:"external_module_json" yaml:"external_module_json"`
	ExaminationHTML string         `json:"examination_result" yaml:"examination_result"`
}

// Select judges the external module against the selected internal one.
// The internal module's learning goals are re-extracted from its JSON and
// injected before judging, and the external module's original_doc is
// dropped.
func (s *Service) Select(ctx context.Context, selectedJSON, externalJSON string) (SelectResult, error) {
	internal, err := decodeObject(selectedJSON)
	if err != nil {
		return SelectResult{}, fmt.Errorf("%w: selected module: %v", ErrInvalidModule, err)
	}
	external, err := decodeObject(externalJSON)
	if err != nil {
		return SelectResult{}, fmt.Errorf("%w: external module: %v", ErrInvalidModule, err)
	}

	extracted := s.extractor.ModuleInfo(ctx, selectedJSON)
	goals := extracted.LearningGoals
	if goals == nil {
		goals = []string{}
	}
	internal["learning_goals"] = goals

	judged := make(map[string]any, len(external))
	for k, v := range external {
		if k != "original_doc" {
			judged[k] = v
		}
	}

	internalOut, err := json.Marshal(internal)
	if err != nil {
		return SelectResult{}, fmt.Errorf("encoding internal module: %w", err)
	}
	externalOut, err := json.Marshal(judged)
	if err != nil {
		return SelectResult{}, fmt.Errorf("encoding external module: %w", err)
	}

	html, err := s.examiner.Examine(ctx, string(internalOut), string(externalOut))
	if err != nil {
		return SelectResult{}, fmt.Errorf("examining modules: %w", err)
	}

	return SelectResult{
		Internal:        internal,
		External:        external,
		InternalJSON:    string(internalOut),
		ExternalJSON:    string(externalOut),
		ExaminationHTML: html,
	}, nil
}

// RecognizeResult is the outcome of Recognize.
type RecognizeResult struct {
	Find     FindResult             `json:"find" yaml:"find"`
	Selected *types.SuggestionEntry `json:"selected,omitempty" yaml:"selected,omitempty"`
	Select   *SelectResult          `json:"select,omitempty" yaml:"select,omitempty"`
}

// Recognize runs Find and then Select against the top suggestion. When
// there is no suggestion the Find part is returned with ErrNoSuggestions.
func (s *Service) Recognize(ctx context.Context, text, institution string) (RecognizeResult, error) {
	found, err := s.Find(ctx, text, institution)
	if err != nil {
		return RecognizeResult{}, err
	}
	res := RecognizeResult{Find: found}
	if len(found.Suggestions) == 0 {
		return res, ErrNoSuggestions
	}

	top := found.Suggestions[0]
	res.Selected = &top
	selected, err := s.Select(ctx, top.JSON, found.ExternalJSON)
	if err != nil {
		return res, err
	}
	res.Select = &selected
	return res, nil
}

// Query builds the ranking query from the parts of a record that describe
// its content: title, learning goals and level, each under a German label.
// It returns "" when all three are empty.
func Query(m types.ModuleRecord) string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString("Titel: \n" + m.Title + "\n")
	}
	if len(m.LearningGoals) > 0 {
		b.WriteString("Lernziele: \n" + strings.Join(m.LearningGoals, "\n") + "\n")
	}
	if m.Level != "" {
		b.WriteString("Niveau: \n" + m.Level + "\n")
	}
	return b.String()
}

// Truncate cuts s to at most limit runes. limit <= 0 disables the cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	return obj, nil
}
