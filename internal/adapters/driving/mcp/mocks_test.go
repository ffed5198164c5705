package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// mockEngine is a mock implementation of driving.SuggestionEngine.
type mockEngine struct {
	suggestions []domain.Suggestion
	err         error
	last        domain.SourceRecord
}

func (m *mockEngine) Name() domain.EngineName {
	return domain.EngineIndexed
}

func (m *mockEngine) Suggest(_ context.Context, record domain.SourceRecord) ([]domain.Suggestion, error) {
	m.last = record
	return m.suggestions, m.err
}

// mockAutoMap is a mock implementation of driving.AutoMapService.
type mockAutoMap struct {
	decision domain.Decision
	result   *domain.AutoMapResult
	err      error
	decided  []domain.Suggestion
	mapped   []domain.SourceRecord
}

func (m *mockAutoMap) Decide(suggestions []domain.Suggestion) domain.Decision {
	m.decided = suggestions
	return m.decision
}

func (m *mockAutoMap) Map(_ context.Context, record domain.SourceRecord) (*domain.AutoMapResult, error) {
	m.mapped = append(m.mapped, record)
	return m.result, m.err
}

func (m *mockAutoMap) MapAll(_ context.Context, _ domain.EntityKind) (domain.AutoMapSummary, error) {
	return domain.AutoMapSummary{}, m.err
}

// mockOntology is a mock implementation of driving.OntologyLoader.
type mockOntology struct {
	frontier []domain.UnprocessedOntologyURL
	err      error
}

func (m *mockOntology) Load(_ context.Context, _ domain.LoadOptions) (*domain.LoadReport, error) {
	return &domain.LoadReport{}, m.err
}

func (m *mockOntology) Crawl(_ context.Context, _ domain.LoadOptions) (*domain.LoadReport, error) {
	return &domain.LoadReport{}, m.err
}

func (m *mockOntology) Normalize(_ context.Context, _ domain.TermType) (int, error) {
	return 0, m.err
}

func (m *mockOntology) Frontier(_ context.Context) ([]domain.UnprocessedOntologyURL, error) {
	return m.frontier, m.err
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}
