package driven

import (
	"time"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// Metrics records operational counters.
type Metrics interface {
	// SearchCompleted records a suggestion search.
	SearchCompleted(engine domain.EngineName, kind domain.EntityKind, results int, elapsed time.Duration)

	// SearchFailed records a failed suggestion search.
	SearchFailed(engine domain.EngineName, kind domain.EntityKind)

	// RelativeScore observes one suggestion's relative score.
	RelativeScore(source domain.SourceKind, score float64)

	// Decision records an automatic mapping decision.
	Decision(outcome domain.DecisionOutcome)

	// CrawlFetch records a frontier fetch by outcome ("ok", "error", "skipped").
	CrawlFetch(t domain.TermType, outcome string)

	// TermsLoaded records newly saved ontology terms.
	TermsLoaded(t domain.TermType, n int)

	// DocumentsIndexed records documents written to the index.
	DocumentsIndexed(source domain.SourceKind, n int)
}
