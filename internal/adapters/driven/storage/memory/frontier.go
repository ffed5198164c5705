package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// Ensure FrontierStore implements the interface.
var _ driven.FrontierStore = (*FrontierStore)(nil)

// FrontierStore is an in-memory implementation of driven.FrontierStore.
// Entries keep insertion order.
type FrontierStore struct {
	mu      sync.RWMutex
	order   []domain.TermKey
	entries map[domain.TermKey]domain.UnprocessedOntologyURL
}

// NewFrontierStore creates a new in-memory frontier.
func NewFrontierStore() *FrontierStore {
	return &FrontierStore{
		entries: make(map[domain.TermKey]domain.UnprocessedOntologyURL),
	}
}

// Add inserts the entry if absent.
func (s *FrontierStore) Add(_ context.Context, entry domain.UnprocessedOntologyURL) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.TermKey{URL: entry.URL, Type: entry.Type}
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = entry
	s.order = append(s.order, key)
	return true, nil
}

// Update stores the attempt counter and error message of an entry.
func (s *FrontierStore) Update(_ context.Context, entry domain.UnprocessedOntologyURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.TermKey{URL: entry.URL, Type: entry.Type}
	current, ok := s.entries[key]
	if !ok {
		return domain.ErrNotFound
	}
	current.Attempts = entry.Attempts
	current.LastError = entry.LastError
	s.entries[key] = current
	return nil
}

// Delete removes an entry.
func (s *FrontierStore) Delete(_ context.Context, url string, t domain.TermType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.TermKey{URL: url, Type: t}
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns every entry in insertion order.
func (s *FrontierStore) List(_ context.Context) ([]domain.UnprocessedOntologyURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.UnprocessedOntologyURL, 0, len(s.order))
	for _, k := range s.order {
		result = append(result, s.entries[k])
	}
	return result, nil
}

// ResetAttempts zeroes every attempt counter.
func (s *FrontierStore) ResetAttempts(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for k, e := range s.entries {
		if e.Attempts != 0 {
			e.Attempts = 0
			s.entries[k] = e
			n++
		}
	}
	return n, nil
}
