package driven

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// OntologyTermStore persists crawled ontology terms.
// (URL, Type) is unique.
type OntologyTermStore interface {
	// SaveTerms inserts or replaces terms by (URL, Type).
	SaveTerms(ctx context.Context, terms []domain.OntologyTerm) error

	// Get retrieves a term by id.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.OntologyTerm, error)

	// Exists reports whether a term with the key is stored.
	Exists(ctx context.Context, key domain.TermKey) (bool, error)

	// List returns the terms of a type ordered by id.
	// An empty type lists every term.
	List(ctx context.Context, t domain.TermType) ([]domain.OntologyTerm, error)

	// DeleteByType removes all terms of a type.
	DeleteByType(ctx context.Context, t domain.TermType) (int, error)
}
