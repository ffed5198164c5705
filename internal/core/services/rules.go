package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
)

// Ensure RuleService implements the interface.
var _ driving.RuleService = (*RuleService)(nil)

// RuleService manages curated records.
type RuleService struct {
	store driven.RuleStore
}

// NewRuleService creates a rule service.
func NewRuleService(store driven.RuleStore) *RuleService {
	return &RuleService{store: store}
}

// Import validates and stores rules. Rules without a status are mapped when
// they carry a term URL and unmapped otherwise. Import stops at the first
// invalid rule.
func (s *RuleService) Import(ctx context.Context, rules []domain.Rule) (int, error) {
	now := time.Now().UTC()
	for i, r := range rules {
		if !r.Record.Kind.IsValid() {
			return i, fmt.Errorf("rule %d: %w: %q", i, domain.ErrUnsupportedType, r.Record.Kind)
		}
		if len(r.Record.Attributes) == 0 {
			return i, fmt.Errorf("rule %d: %w: no attributes", i, domain.ErrInvalidInput)
		}
		if r.Status == "" {
			r.Status = domain.RuleUnmapped
			if r.MappedTermURL != "" {
				r.Status = domain.RuleMapped
			}
		}
		if r.Status == domain.RuleMapped && r.MappedTermURL == "" {
			return i, fmt.Errorf("rule %d: %w: mapped without term url", i, domain.ErrInvalidInput)
		}
		if r.Status == domain.RuleMapped && r.MappedBy == "" {
			r.MappedBy = domain.MappedByCurator
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		if err := s.store.Save(ctx, r); err != nil {
			return i, fmt.Errorf("save rule %d: %w", i, err)
		}
	}
	return len(rules), nil
}

// Get retrieves a rule by record key.
func (s *RuleService) Get(ctx context.Context, key string) (*domain.Rule, error) {
	return s.store.Get(ctx, key)
}
