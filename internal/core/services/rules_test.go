package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ontomap/internal/core/domain"
)

func TestRuleService_Import(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRuleStore()
	s := NewRuleService(store)

	mapped := domain.Rule{Record: treatment("p1", "cisplatin", "chemo", "pdx"), MappedTermURL: cisplatinURL}
	unmapped := domain.Rule{Record: treatment("p2", "x", "y", "z")}

	n, err := s.Import(ctx, []domain.Rule{mapped, unmapped})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Get(ctx, mapped.Key())
	require.NoError(t, err)
	assert.Equal(t, domain.RuleMapped, got.Status)
	assert.Equal(t, domain.MappedByCurator, got.MappedBy)
	assert.False(t, got.UpdatedAt.IsZero())

	got, err = s.Get(ctx, unmapped.Key())
	require.NoError(t, err)
	assert.Equal(t, domain.RuleUnmapped, got.Status)
}

func TestRuleService_Import_StopsAtInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewRuleService(memory.NewRuleStore())

	rules := []domain.Rule{
		{Record: treatment("p1", "a", "b", "c")},
		{Record: domain.NewSourceRecord("p2", "organ", domain.Attribute{Key: "k", Value: "v"})},
		{Record: treatment("p3", "d", "e", "f")},
	}
	n, err := s.Import(ctx, rules)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Equal(t, 1, n)

	_, err = s.Import(ctx, []domain.Rule{{Record: domain.NewSourceRecord("p4", domain.KindTreatment)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Import(ctx, []domain.Rule{{Record: treatment("p5", "a", "b", "c"), Status: domain.RuleMapped}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRuleService_Get_NotFound(t *testing.T) {
	s := NewRuleService(memory.NewRuleStore())
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
