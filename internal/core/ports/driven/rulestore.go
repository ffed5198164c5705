package driven

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// RuleStore persists curated records. The core only reads mapped rules for
// indexing and resolves rule suggestions by key; writes come from the
// automatic mapping caller and imports.
type RuleStore interface {
	// Save stores or updates a rule, keyed by its record's content hash.
	Save(ctx context.Context, rule domain.Rule) error

	// Get retrieves a rule by record key.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, key string) (*domain.Rule, error)

	// ListMapped returns a consistent snapshot of mapped rules of a kind.
	// An empty kind lists every kind.
	ListMapped(ctx context.Context, kind domain.EntityKind) ([]domain.Rule, error)

	// ListUnmapped returns rules of a kind still awaiting a mapping.
	// An empty kind lists every kind.
	ListUnmapped(ctx context.Context, kind domain.EntityKind) ([]domain.Rule, error)
}
