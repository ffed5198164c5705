package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService rebuilds rule and ontology documents. Every document is
// mapped before anything is staged, so a configuration error leaves the
// index untouched.
type IndexService struct {
	mapper  *DocumentMapper
	writer  driven.IndexWriter
	rules   driven.RuleStore
	terms   driven.OntologyTermStore
	metrics driven.Metrics

	// mu serialises reloads; the writer is single-owner.
	mu sync.Mutex
}

// NewIndexService creates an index service.
// The metrics parameter is optional (can be nil).
func NewIndexService(
	mapper *DocumentMapper,
	writer driven.IndexWriter,
	rules driven.RuleStore,
	terms driven.OntologyTermStore,
	metrics driven.Metrics,
) *IndexService {
	return &IndexService{
		mapper:  mapper,
		writer:  writer,
		rules:   rules,
		terms:   terms,
		metrics: metricsOrNop(metrics),
	}
}

// IndexRules replaces every rule document with the current mapped rules.
func (s *IndexService) IndexRules(ctx context.Context) (int, error) {
	logger.Section("Index Rules")

	rules, err := s.rules.ListMapped(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	docs := make([]domain.IndexedDocument, 0, len(rules))
	for _, r := range rules {
		doc, err := s.mapper.FromRule(r)
		if err != nil {
			return 0, fmt.Errorf("map rule %s: %w", r.Record.ID, err)
		}
		docs = append(docs, doc)
	}

	return s.replace(ctx, domain.SourceRule, docs)
}

// IndexOntology replaces every ontology document with the stored terms.
func (s *IndexService) IndexOntology(ctx context.Context) (int, error) {
	logger.Section("Index Ontology")

	terms, err := s.terms.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list terms: %w", err)
	}

	docs := make([]domain.IndexedDocument, 0, len(terms))
	for _, t := range terms {
		doc, err := s.mapper.FromTerm(t)
		if err != nil {
			return 0, fmt.Errorf("map term %s: %w", t.URL, err)
		}
		docs = append(docs, doc)
	}

	return s.replace(ctx, domain.SourceOntology, docs)
}

// replace stages delete-by-source-kind plus the new documents and commits.
func (s *IndexService) replace(ctx context.Context, kind domain.SourceKind, docs []domain.IndexedDocument) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.writer.DeleteByField(ctx, domain.FieldSourceKind, string(kind))
	if err != nil {
		s.writer.Rollback()
		return 0, fmt.Errorf("delete %s documents: %w", kind, err)
	}
	logger.Debug("Staged removal of %d %s documents", removed, kind)

	if err := s.writer.Add(ctx, docs...); err != nil {
		s.writer.Rollback()
		return 0, fmt.Errorf("add %s documents: %w", kind, err)
	}
	if err := s.writer.Commit(ctx); err != nil {
		s.writer.Rollback()
		return 0, fmt.Errorf("commit %s documents: %w", kind, err)
	}

	logger.Info("Indexed %d %s documents", len(docs), kind)
	s.metrics.DocumentsIndexed(kind, len(docs))
	return len(docs), nil
}
