package driving

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// AutoMapService decides and commits mappings without human review.
type AutoMapService interface {
	// Decide applies the threshold and consensus policy to suggestions.
	Decide(suggestions []domain.Suggestion) domain.Decision

	// Map suggests, decides and, on acceptance, stores the record as a
	// mapped rule.
	Map(ctx context.Context, record domain.SourceRecord) (*domain.AutoMapResult, error)

	// MapAll runs Map over every unmapped rule of a kind.
	MapAll(ctx context.Context, kind domain.EntityKind) (domain.AutoMapSummary, error)
}
