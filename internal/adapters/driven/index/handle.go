package index

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Handle is a reference-counted owner of an open bleve index. The index is
// closed when the last reference is released. Each search reads a snapshot
// taken when it starts, so a commit is seen by searches started after it
// and never by staged operations.
type Handle struct {
	mu   sync.Mutex
	idx  bleve.Index
	refs int
	path string
}

// Open opens the index at path, creating it with the schema's mapping when
// it does not exist. An empty path creates a memory-only index. The
// returned handle holds one reference.
func Open(path string, schema domain.Schema) (*Handle, error) {
	var (
		idx bleve.Index
		err error
	)
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(buildIndexMapping(schema))
	default:
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			logger.Debug("Creating index at %s", path)
			idx, err = bleve.New(path, buildIndexMapping(schema))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", path, err)
	}
	return &Handle{idx: idx, refs: 1, path: path}, nil
}

// Acquire returns the index and takes a reference. Callers must Release.
func (h *Handle) Acquire() (bleve.Index, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return nil, domain.ErrIndexClosed
	}
	h.refs++
	return h.idx, nil
}

// Release drops a reference and closes the index at zero.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return domain.ErrIndexClosed
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}
	logger.Debug("Closing index %q", h.path)
	return h.idx.Close()
}

// Refs returns the current reference count.
func (h *Handle) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}
