package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure engines implement the interfaces.
var (
	_ driving.SuggestionEngine = (*IndexedEngine)(nil)
	_ driving.QueryInspector   = (*IndexedEngine)(nil)
	_ driving.SuggestionEngine = (*PairwiseWeightedEngine)(nil)
)

// IndexedEngine ranks suggestions by searching the inverted index and
// normalising scores against a calibration document.
type IndexedEngine struct {
	builder    *QueryBuilder
	normalizer *RelativeScoreNormalizer
	rules      driven.RuleStore
	terms      driven.OntologyTermStore
	metrics    driven.Metrics
}

// NewIndexedEngine creates the primary suggestion engine.
// The metrics parameter is optional (can be nil).
func NewIndexedEngine(
	builder *QueryBuilder,
	normalizer *RelativeScoreNormalizer,
	rules driven.RuleStore,
	terms driven.OntologyTermStore,
	metrics driven.Metrics,
) *IndexedEngine {
	return &IndexedEngine{
		builder:    builder,
		normalizer: normalizer,
		rules:      rules,
		terms:      terms,
		metrics:    metricsOrNop(metrics),
	}
}

// Name identifies the engine.
func (e *IndexedEngine) Name() domain.EngineName {
	return domain.EngineIndexed
}

// BuildQuery returns the query Suggest would execute.
func (e *IndexedEngine) BuildQuery(record domain.SourceRecord) (domain.Query, error) {
	return e.builder.Build(record)
}

// Suggest returns suggestions for a record sorted by descending relative
// score. A calibration failure fails the whole request.
func (e *IndexedEngine) Suggest(ctx context.Context, record domain.SourceRecord) ([]domain.Suggestion, error) {
	logger.Section("Suggestion Search")
	logger.Debug("Record %s (%s) key=%s", record.ID, record.Kind, record.Key())
	start := time.Now()

	q, err := e.builder.Build(record)
	if err != nil {
		e.metrics.SearchFailed(e.Name(), record.Kind)
		return nil, fmt.Errorf("build query: %w", err)
	}
	if q.Empty() {
		logger.Debug("Empty query, returning no suggestions")
		return []domain.Suggestion{}, nil
	}
	logger.Debug("Query: %s", q)

	hits, maxScore, err := e.normalizer.Search(ctx, record, q)
	if err != nil {
		e.metrics.SearchFailed(e.Name(), record.Kind)
		return nil, fmt.Errorf("suggest %s: %w", record.Kind, err)
	}
	logger.Debug("Raw results: %d hits, max score %.4f", len(hits), maxScore)

	suggestions := make([]domain.Suggestion, 0, len(hits))
	for _, h := range hits {
		s, err := e.resolve(ctx, h)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Index references missing %s %s, skipping", h.SourceKind, h.ID)
			continue
		}
		if err != nil {
			e.metrics.SearchFailed(e.Name(), record.Kind)
			return nil, err
		}
		e.metrics.RelativeScore(s.SourceKind, s.RelativeScore)
		suggestions = append(suggestions, s)
	}

	SortSuggestions(suggestions)
	e.metrics.SearchCompleted(e.Name(), record.Kind, len(suggestions), time.Since(start))
	return suggestions, nil
}

// resolve hydrates a hit with its rule or ontology term.
func (e *IndexedEngine) resolve(ctx context.Context, h NormalizedHit) (domain.Suggestion, error) {
	s := domain.Suggestion{
		SourceKind:    h.SourceKind,
		DocumentID:    h.ID,
		Score:         h.Score,
		RelativeScore: h.RelativeScore,
	}
	switch h.SourceKind {
	case domain.SourceRule:
		rule, err := e.rules.Get(ctx, h.ID)
		if err != nil {
			return s, fmt.Errorf("resolve rule %s: %w", h.ID, err)
		}
		s.Rule = rule
		s.TermURL = rule.MappedTermURL
		s.TermLabel = rule.MappedTermLabel
	case domain.SourceOntology:
		term, err := e.terms.Get(ctx, h.ID)
		if err != nil {
			return s, fmt.Errorf("resolve term %s: %w", h.ID, err)
		}
		s.Term = term
		s.TermURL = term.URL
		s.TermLabel = term.Label
	default:
		return s, fmt.Errorf("%w: unexpected %s hit %s", domain.ErrNotFound, h.SourceKind, h.ID)
	}
	return s, nil
}

// PairwiseWeightedEngine compares a record against every mapped rule of the
// same kind with the weighted comparator. It needs no index and is kept as
// a fallback.
type PairwiseWeightedEngine struct {
	cfg        *domain.Config
	rules      driven.RuleStore
	comparator *WeightedComparator
	metrics    driven.Metrics
}

// NewPairwiseWeightedEngine creates the fallback engine.
// The metrics parameter is optional (can be nil).
func NewPairwiseWeightedEngine(
	cfg *domain.Config, rules driven.RuleStore, comparator *WeightedComparator, metrics driven.Metrics,
) *PairwiseWeightedEngine {
	if comparator == nil {
		comparator = NewWeightedComparator(nil, nil)
	}
	return &PairwiseWeightedEngine{cfg: cfg, rules: rules, comparator: comparator, metrics: metricsOrNop(metrics)}
}

// Name identifies the engine.
func (e *PairwiseWeightedEngine) Name() domain.EngineName {
	return domain.EnginePairwise
}

// Suggest scores each mapped rule; relative score is similarity × 100.
func (e *PairwiseWeightedEngine) Suggest(ctx context.Context, record domain.SourceRecord) ([]domain.Suggestion, error) {
	logger.Section("Pairwise Suggestion Search")
	start := time.Now()

	kc, err := e.cfg.SearchConfig(record.Kind)
	if err != nil {
		e.metrics.SearchFailed(e.Name(), record.Kind)
		return nil, err
	}
	rules, err := e.rules.ListMapped(ctx, record.Kind)
	if err != nil {
		e.metrics.SearchFailed(e.Name(), record.Kind)
		return nil, fmt.Errorf("list rules: %w", err)
	}
	logger.Debug("Comparing against %d rules", len(rules))

	self := record.Key()
	suggestions := make([]domain.Suggestion, 0, len(rules))
	for i := range rules {
		rule := rules[i]
		if rule.Key() == self {
			continue
		}
		sim := e.comparator.Compare(kc, record, rule.Record)
		if sim <= 0 {
			continue
		}
		s := domain.Suggestion{
			SourceKind:    domain.SourceRule,
			DocumentID:    rule.Key(),
			TermURL:       rule.MappedTermURL,
			TermLabel:     rule.MappedTermLabel,
			Score:         sim,
			RelativeScore: sim * 100,
			Rule:          &rule,
		}
		e.metrics.RelativeScore(s.SourceKind, s.RelativeScore)
		suggestions = append(suggestions, s)
	}

	SortSuggestions(suggestions)
	if limit := e.cfg.Query.Limit; limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	e.metrics.SearchCompleted(e.Name(), record.Kind, len(suggestions), time.Since(start))
	return suggestions, nil
}

// SortSuggestions orders by descending relative score, ties broken by
// document id.
func SortSuggestions(s []domain.Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].RelativeScore != s[j].RelativeScore {
			return s[i].RelativeScore > s[j].RelativeScore
		}
		return s[i].DocumentID < s[j].DocumentID
	})
}

// EngineDeps carries what NewSuggestionEngine may need.
type EngineDeps struct {
	Builder    *QueryBuilder
	Normalizer *RelativeScoreNormalizer
	Rules      driven.RuleStore
	Terms      driven.OntologyTermStore
	Comparator *WeightedComparator
	Metrics    driven.Metrics
}

// NewSuggestionEngine selects the engine named by configuration.
func NewSuggestionEngine(cfg *domain.Config, deps EngineDeps) (driving.SuggestionEngine, error) {
	switch cfg.Engine {
	case domain.EngineIndexed, "":
		if deps.Builder == nil || deps.Normalizer == nil {
			return nil, domain.ErrSearchUnavailable
		}
		return NewIndexedEngine(deps.Builder, deps.Normalizer, deps.Rules, deps.Terms, deps.Metrics), nil
	case domain.EnginePairwise:
		return NewPairwiseWeightedEngine(cfg, deps.Rules, deps.Comparator, deps.Metrics), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEngine, cfg.Engine)
}
