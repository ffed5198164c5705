package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Verify interface compliance.
var _ driven.SearchIndex = (*Engine)(nil)

const (
	defaultLimit   = 10
	deletePageSize = 500
)

// Engine is the bleve-backed search index.
type Engine struct {
	handle *Handle
	schema domain.Schema

	mu     sync.Mutex
	batch  *bleve.Batch
	staged int
	closed bool
}

// New creates an engine over an open handle. The engine takes ownership of
// the handle's initial reference.
func New(handle *Handle, schema domain.Schema) *Engine {
	return &Engine{handle: handle, schema: schema}
}

// Add stages documents. Every document is validated against the schema
// before any is staged.
func (e *Engine) Add(_ context.Context, docs ...domain.IndexedDocument) error {
	for _, d := range docs {
		if err := e.schema.Validate(d); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.stage()
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := b.Index(d.ID, documentData(d, e.schema)); err != nil {
			return fmt.Errorf("stage %s: %w", d.ID, err)
		}
		e.staged++
	}
	return nil
}

// DeleteByField stages deletion of every committed document whose keyword
// field equals value and returns how many were staged.
func (e *Engine) DeleteByField(ctx context.Context, field domain.FieldKey, value string) (int, error) {
	if kind, ok := e.schema.Kind(field); !ok || kind != domain.FieldKeyword {
		return 0, fmt.Errorf("%w: %s is not a keyword field", domain.ErrInvalidInput, field)
	}

	idx, err := e.handle.Acquire()
	if err != nil {
		return 0, err
	}
	defer e.handle.Release()

	var ids []string
	for from := 0; ; from += deletePageSize {
		req := bleve.NewSearchRequestOptions(keywordQuery(field, value), deletePageSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := idx.SearchInContext(ctx, req)
		if err != nil {
			return 0, fmt.Errorf("find %s=%s: %w", field, value, err)
		}
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		if len(res.Hits) < deletePageSize {
			break
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.stage()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		b.Delete(id)
		e.staged++
	}
	return len(ids), nil
}

// Commit applies the staged batch atomically.
func (e *Engine) Commit(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrIndexClosed
	}
	if e.batch == nil {
		return nil
	}

	idx, err := e.handle.Acquire()
	if err != nil {
		return err
	}
	defer e.handle.Release()

	logger.Debug("Committing %d staged operations", e.staged)
	if err := idx.Batch(e.batch); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.batch = nil
	e.staged = 0
	return nil
}

// Rollback discards staged operations.
func (e *Engine) Rollback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batch != nil {
		e.batch.Reset()
	}
	e.batch = nil
	e.staged = 0
}

// Pending returns the number of staged operations.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.staged
}

// stage returns the open batch, creating it on first use. Callers hold mu.
func (e *Engine) stage() (*bleve.Batch, error) {
	if e.closed {
		return nil, domain.ErrIndexClosed
	}
	if e.batch != nil {
		return e.batch, nil
	}
	idx, err := e.handle.Acquire()
	if err != nil {
		return nil, err
	}
	defer e.handle.Release()
	e.batch = idx.NewBatch()
	return e.batch, nil
}

// Search runs each family as its own search and keeps the best family score
// per document. Hits are ordered by descending score, ties by id.
func (e *Engine) Search(ctx context.Context, q domain.Query) ([]domain.Hit, error) {
	if q.Empty() {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	idx, err := e.handle.Acquire()
	if err != nil {
		return nil, err
	}
	defer e.handle.Release()

	best := make(map[string]domain.Hit)
	for _, f := range q.Families {
		fq := familyQuery(f, q)
		if fq == nil {
			continue
		}
		// The top limit hits of every family are enough: a document outside
		// a family's top limit cannot reach the merged top limit through it.
		req := bleve.NewSearchRequestOptions(fq, limit, 0, false)
		req.SortBy([]string{"-_score", "_id"})
		req.Fields = []string{domain.FieldSourceKind.Name()}

		res, err := idx.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("search %s family: %w", f.Name, err)
		}
		for _, h := range res.Hits {
			if prev, ok := best[h.ID]; ok && prev.Score >= h.Score {
				continue
			}
			kind, _ := h.Fields[domain.FieldSourceKind.Name()].(string)
			best[h.ID] = domain.Hit{ID: h.ID, SourceKind: domain.SourceKind(kind), Score: h.Score}
		}
	}

	hits := make([]domain.Hit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of committed documents.
func (e *Engine) Count(_ context.Context) (uint64, error) {
	idx, err := e.handle.Acquire()
	if err != nil {
		return 0, err
	}
	defer e.handle.Release()
	return idx.DocCount()
}

// PutCalibration indexes a calibration document immediately, outside the
// staged batch.
func (e *Engine) PutCalibration(_ context.Context, doc domain.IndexedDocument) error {
	if doc.SourceKind != domain.SourceCalibration {
		return fmt.Errorf("%w: %s is not a calibration document", domain.ErrInvalidInput, doc.ID)
	}
	if err := e.schema.Validate(doc); err != nil {
		return err
	}
	idx, err := e.handle.Acquire()
	if err != nil {
		return err
	}
	defer e.handle.Release()
	if err := idx.Index(doc.ID, documentData(doc, e.schema)); err != nil {
		return fmt.Errorf("index calibration %s: %w", doc.ID, err)
	}
	return nil
}

// RemoveCalibration deletes a calibration document.
func (e *Engine) RemoveCalibration(_ context.Context, id string) error {
	idx, err := e.handle.Acquire()
	if err != nil {
		return err
	}
	defer e.handle.Release()
	if err := idx.Delete(id); err != nil {
		return fmt.Errorf("remove calibration %s: %w", id, err)
	}
	return nil
}

// Close discards staged operations and releases the engine's reference.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.batch = nil
	e.staged = 0
	return e.handle.Release()
}
