package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

func newRule(kind domain.EntityKind, name, url string) domain.Rule {
	r := domain.Rule{
		Record: domain.NewSourceRecord(name, kind, domain.Attribute{Key: "treatment_name", Value: name}),
		Status: domain.RuleUnmapped,
	}
	if url != "" {
		r.Status = domain.RuleMapped
		r.MappedTermURL = url
	}
	return r
}

func TestRuleStore_SaveGet(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()
	rule := newRule(domain.KindTreatment, "cisplatin", "http://x/C376")

	require.NoError(t, store.Save(ctx, rule))

	got, err := store.Get(ctx, rule.Key())
	require.NoError(t, err)
	assert.Equal(t, "http://x/C376", got.MappedTermURL)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRuleStore_List(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newRule(domain.KindTreatment, "a", "http://x/1")))
	require.NoError(t, store.Save(ctx, newRule(domain.KindTreatment, "b", "")))
	require.NoError(t, store.Save(ctx, newRule(domain.KindDiagnosis, "c", "http://x/2")))

	mapped, err := store.ListMapped(ctx, domain.KindTreatment)
	require.NoError(t, err)
	assert.Len(t, mapped, 1)

	all, err := store.ListMapped(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unmapped, err := store.ListUnmapped(ctx, domain.KindTreatment)
	require.NoError(t, err)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "b", unmapped[0].Record.ID)
}
