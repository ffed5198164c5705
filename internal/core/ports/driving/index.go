package driving

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// IndexService rebuilds the inverted index from stored rules and terms.
type IndexService interface {
	// IndexRules replaces every rule document with the current mapped rules.
	IndexRules(ctx context.Context) (int, error)

	// IndexOntology replaces every ontology document with the stored terms.
	IndexOntology(ctx context.Context) (int, error)
}

// RuleService manages curated records.
type RuleService interface {
	// Import stores rules. Returns the number stored.
	Import(ctx context.Context, rules []domain.Rule) (int, error)

	// Get retrieves a rule by record key.
	Get(ctx context.Context, key string) (*domain.Rule, error)
}
