package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// Ensure RuleStore implements the interface.
var _ driven.RuleStore = (*RuleStore)(nil)

// RuleStore is an in-memory implementation of driven.RuleStore.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]domain.Rule
}

// NewRuleStore creates a new in-memory rule store.
func NewRuleStore() *RuleStore {
	return &RuleStore{
		rules: make(map[string]domain.Rule),
	}
}

// Save stores or updates a rule.
func (s *RuleStore) Save(_ context.Context, rule domain.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.Key()] = rule
	return nil
}

// Get retrieves a rule by record key.
func (s *RuleStore) Get(_ context.Context, key string) (*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rule, nil
}

// ListMapped returns mapped rules of a kind ordered by key.
func (s *RuleStore) ListMapped(_ context.Context, kind domain.EntityKind) ([]domain.Rule, error) {
	return s.list(kind, true), nil
}

// ListUnmapped returns unmapped rules of a kind ordered by key.
func (s *RuleStore) ListUnmapped(_ context.Context, kind domain.EntityKind) ([]domain.Rule, error) {
	return s.list(kind, false), nil
}

func (s *RuleStore) list(kind domain.EntityKind, mapped bool) []domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if kind != "" && r.Record.Kind != kind {
			continue
		}
		if r.IsMapped() == mapped {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key() < result[j].Key() })
	return result
}
