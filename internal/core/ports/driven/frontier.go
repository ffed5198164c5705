package driven

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// FrontierStore persists the crawl frontier, keyed by (URL, Type).
// It is the sole record of crawl progress.
type FrontierStore interface {
	// Add inserts the entry if absent. Reports whether it was inserted.
	Add(ctx context.Context, entry domain.UnprocessedOntologyURL) (bool, error)

	// Update stores the attempt counter and error message of an entry.
	// Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, entry domain.UnprocessedOntologyURL) error

	// Delete removes an entry.
	Delete(ctx context.Context, url string, t domain.TermType) error

	// List returns every entry in insertion order.
	List(ctx context.Context) ([]domain.UnprocessedOntologyURL, error)

	// ResetAttempts zeroes every attempt counter. Returns the number of
	// entries changed.
	ResetAttempts(ctx context.Context) (int, error)
}
