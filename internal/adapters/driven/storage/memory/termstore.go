package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// Ensure OntologyTermStore implements the interface.
var _ driven.OntologyTermStore = (*OntologyTermStore)(nil)

// OntologyTermStore is an in-memory implementation of driven.OntologyTermStore.
type OntologyTermStore struct {
	mu    sync.RWMutex
	terms map[domain.TermKey]domain.OntologyTerm
}

// NewOntologyTermStore creates a new in-memory term store.
func NewOntologyTermStore() *OntologyTermStore {
	return &OntologyTermStore{
		terms: make(map[domain.TermKey]domain.OntologyTerm),
	}
}

// SaveTerms inserts or replaces terms by (URL, Type).
func (s *OntologyTermStore) SaveTerms(_ context.Context, terms []domain.OntologyTerm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range terms {
		if t.ID == "" {
			t.ID = domain.TermID(t.Type, t.URL)
		}
		s.terms[t.Key()] = t
	}
	return nil
}

// Get retrieves a term by id.
func (s *OntologyTermStore) Get(_ context.Context, id string) (*domain.OntologyTerm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.terms {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Exists reports whether a term with the key is stored.
func (s *OntologyTermStore) Exists(_ context.Context, key domain.TermKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.terms[key]
	return ok, nil
}

// List returns the terms of a type ordered by id.
func (s *OntologyTermStore) List(_ context.Context, t domain.TermType) ([]domain.OntologyTerm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.OntologyTerm, 0, len(s.terms))
	for _, term := range s.terms {
		if t == "" || term.Type == t {
			result = append(result, term)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteByType removes all terms of a type.
func (s *OntologyTermStore) DeleteByType(_ context.Context, t domain.TermType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for k := range s.terms {
		if k.Type == t {
			delete(s.terms, k)
			n++
		}
	}
	return n, nil
}
