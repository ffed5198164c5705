package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure AutoMapService implements the interface.
var _ driving.AutoMapService = (*AutoMapService)(nil)

// AutoMapService commits mappings that pass the threshold and consensus
// policy, leaving everything else for human review.
type AutoMapService struct {
	cfg     domain.AutoMapConfig
	engine  driving.SuggestionEngine
	rules   driven.RuleStore
	sink    driven.MappingEventSink
	metrics driven.Metrics
	now     func() time.Time
}

// NewAutoMapService creates the service.
// The sink and metrics parameters are optional (can be nil).
func NewAutoMapService(
	cfg domain.AutoMapConfig,
	engine driving.SuggestionEngine,
	rules driven.RuleStore,
	sink driven.MappingEventSink,
	metrics driven.Metrics,
) *AutoMapService {
	return &AutoMapService{
		cfg:     cfg,
		engine:  engine,
		rules:   rules,
		sink:    sink,
		metrics: metricsOrNop(metrics),
		now:     time.Now,
	}
}

// Decide applies the policy:
//  1. drop suggestions below the acceptable threshold;
//  2. sort the rest by descending relative score;
//  3. accept the first at or above the perfect threshold;
//  4. otherwise accept when the top consensusSize suggestions share a URL.
//
// Anything else, including an empty list, is "no decision".
func (s *AutoMapService) Decide(suggestions []domain.Suggestion) domain.Decision {
	acceptable := make([]domain.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.RelativeScore >= s.cfg.AcceptableThreshold {
			acceptable = append(acceptable, sg)
		}
	}
	SortSuggestions(acceptable)

	for i := range acceptable {
		if acceptable[i].RelativeScore >= s.cfg.PerfectThreshold {
			return domain.Decision{Outcome: domain.OutcomePerfect, Suggestion: &acceptable[i], Considered: len(acceptable)}
		}
	}

	n := s.cfg.ConsensusSize
	if n <= 0 || len(acceptable) < n {
		return domain.NoDecision(len(acceptable))
	}
	url := acceptable[0].TermURL
	if url == "" {
		return domain.NoDecision(len(acceptable))
	}
	for _, sg := range acceptable[1:n] {
		if sg.TermURL != url {
			return domain.NoDecision(len(acceptable))
		}
	}
	return domain.Decision{Outcome: domain.OutcomeConsensus, Suggestion: &acceptable[0], Considered: len(acceptable)}
}

// Map suggests and decides for one record. On acceptance the record is
// stored as an automatically mapped rule and an event is published.
func (s *AutoMapService) Map(ctx context.Context, record domain.SourceRecord) (*domain.AutoMapResult, error) {
	suggestions, err := s.engine.Suggest(ctx, record)
	if err != nil {
		return nil, err
	}

	decision := s.Decide(suggestions)
	s.metrics.Decision(decision.Outcome)
	result := &domain.AutoMapResult{Record: record, Decision: decision, Suggestions: suggestions}
	if !decision.Accepted() {
		logger.Debug("Record %s needs review (%d acceptable suggestions)", record.ID, decision.Considered)
		return result, nil
	}

	chosen := decision.Suggestion
	logger.Info("Record %s mapped to %s (%s, %.1f)", record.ID, chosen.TermURL, decision.Outcome, chosen.RelativeScore)

	now := s.now().UTC()
	rule := domain.Rule{
		Record:          record,
		Status:          domain.RuleMapped,
		MappedTermURL:   chosen.TermURL,
		MappedTermLabel: chosen.TermLabel,
		MappedBy:        domain.MappedAutomatically,
		UpdatedAt:       now,
	}
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("save mapping: %w", err)
	}

	if s.sink != nil {
		event := domain.MappingEvent{
			RecordKey:     record.Key(),
			RecordID:      record.ID,
			Kind:          record.Kind,
			Outcome:       decision.Outcome,
			TermURL:       chosen.TermURL,
			TermLabel:     chosen.TermLabel,
			SourceKind:    chosen.SourceKind,
			RelativeScore: chosen.RelativeScore,
			DecidedAt:     now,
		}
		if err := s.sink.Publish(ctx, event); err != nil {
			logger.Warn("Failed to publish mapping event for %s: %v", record.ID, err)
		}
	}
	return result, nil
}

// MapAll runs Map for every unmapped rule of a kind. Per-record failures are
// counted and joined into the returned error; the batch continues.
func (s *AutoMapService) MapAll(ctx context.Context, kind domain.EntityKind) (domain.AutoMapSummary, error) {
	logger.Section("Automatic Mapping")

	var summary domain.AutoMapSummary
	pending, err := s.rules.ListUnmapped(ctx, kind)
	if err != nil {
		return summary, fmt.Errorf("list unmapped: %w", err)
	}
	logger.Debug("Unmapped records: %d", len(pending))

	var errs []error
	for _, rule := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		summary.Total++

		result, err := s.Map(ctx, rule.Record)
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("record %s: %w", rule.Record.ID, err))
			continue
		}
		switch result.Decision.Outcome {
		case domain.OutcomePerfect:
			summary.Perfect++
		case domain.OutcomeConsensus:
			summary.Consensus++
		default:
			summary.Review++
		}
	}

	return summary, errors.Join(errs...)
}
