package driven

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// IndexWriter stages changes to the inverted index.
// There is exactly one writer per index and calls are serialised.
// Staged changes become visible to searches only after Commit.
type IndexWriter interface {
	// Add stages documents for insertion. A document with an existing id
	// replaces it on commit.
	Add(ctx context.Context, docs ...domain.IndexedDocument) error

	// DeleteByField stages the removal of every committed document whose
	// keyword field equals value. Returns the number of documents staged.
	DeleteByField(ctx context.Context, field domain.FieldKey, value string) (int, error)

	// Commit applies staged changes atomically.
	Commit(ctx context.Context) error

	// Rollback drops staged changes.
	Rollback()

	// Pending returns the number of staged operations.
	Pending() int
}

// IndexReader executes queries against committed documents.
// Safe for concurrent use.
type IndexReader interface {
	// Search executes a suggestion query and returns hits sorted by
	// descending score, ties broken by id.
	Search(ctx context.Context, q domain.Query) ([]domain.Hit, error)

	// Count returns the number of committed documents.
	Count(ctx context.Context) (uint64, error)
}

// CalibrationIndex stores calibration documents outside the writer's batch
// so they never interleave with a reload in progress.
type CalibrationIndex interface {
	// PutCalibration makes a calibration document immediately searchable.
	PutCalibration(ctx context.Context, doc domain.IndexedDocument) error

	// RemoveCalibration deletes a calibration document.
	RemoveCalibration(ctx context.Context, id string) error
}

// SearchIndex is the full index surface opened by the application.
type SearchIndex interface {
	IndexWriter
	IndexReader
	CalibrationIndex

	// Close releases the caller's reference to the index.
	Close() error
}
