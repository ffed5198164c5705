package driving

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// SuggestionEngine ranks candidate mappings for a source record.
// Implementations are selected by configuration.
type SuggestionEngine interface {
	// Name identifies the engine.
	Name() domain.EngineName

	// Suggest returns suggestions sorted by descending relative score.
	Suggest(ctx context.Context, record domain.SourceRecord) ([]domain.Suggestion, error)
}

// QueryInspector exposes the query an engine would run, for diagnostics.
type QueryInspector interface {
	// BuildQuery returns the structured suggestion query for a record.
	BuildQuery(record domain.SourceRecord) (domain.Query, error)
}
