package driving

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// OntologyLoader populates ontology terms from the remote hierarchy.
type OntologyLoader interface {
	// Load seeds or resumes the crawl, runs it to completion and resets
	// attempt counters for the next run.
	Load(ctx context.Context, opts domain.LoadOptions) (*domain.LoadReport, error)

	// Crawl runs the crawl loop over the current frontier without seeding
	// or resetting counters.
	Crawl(ctx context.Context, opts domain.LoadOptions) (*domain.LoadReport, error)

	// Normalize re-applies label and synonym post-processing to stored terms.
	// Returns the number of terms changed.
	Normalize(ctx context.Context, t domain.TermType) (int, error)

	// Frontier returns the pending crawl entries.
	Frontier(ctx context.Context) ([]domain.UnprocessedOntologyURL, error)
}
