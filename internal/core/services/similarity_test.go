package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

func TestLevenshteinSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, LevenshteinSimilarity("abc", "abc"), 1e-9)
	assert.InDelta(t, 1.0, LevenshteinSimilarity("", ""), 1e-9)
	assert.InDelta(t, 0.0, LevenshteinSimilarity("abc", ""), 1e-9)
	assert.InDelta(t, 1-1.0/3, LevenshteinSimilarity("abc", "abd"), 1e-9)
	// Lengths are counted in runes.
	assert.InDelta(t, 0.75, LevenshteinSimilarity("éabc", "eabc"), 1e-9)
}

func TestLevenshteinSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{{"cisplatin", "carboplatin"}, {"kitten", "sitting"}, {"a", "abc"}}
	for _, p := range pairs {
		s := LevenshteinSimilarity(p[0], p[1])
		assert.InDelta(t, s, LevenshteinSimilarity(p[1], p[0]), 1e-9)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestExactSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, ExactSimilarity("a", "a"))
	assert.Equal(t, 0.0, ExactSimilarity("a", "A"))
}

func TestWeightedComparator_Compare(t *testing.T) {
	kc := domain.KindSearchConfig{
		Kind: domain.KindTreatment,
		Attributes: []domain.AttributeSearchConfig{
			{Key: "treatment_name", Weight: 0.7, MainField: true},
			{Key: "data_source", Weight: 0.3},
		},
	}
	a := domain.NewSourceRecord("a", domain.KindTreatment,
		domain.Attribute{Key: "treatment_name", Value: "Cisplatin"},
		domain.Attribute{Key: "data_source", Value: "PDX"},
	)
	b := domain.NewSourceRecord("b", domain.KindTreatment,
		domain.Attribute{Key: "treatment_name", Value: "cisplatin"},
		domain.Attribute{Key: "data_source", Value: "other"},
	)

	c := NewWeightedComparator(ExactSimilarity, nil)
	assert.InDelta(t, 0.7, c.Compare(kc, a, b), 1e-9)
	assert.InDelta(t, 1.0, c.Compare(kc, a, a), 1e-9)
}

func TestWeightedComparator_MissingValuesAreUnknown(t *testing.T) {
	kc := domain.KindSearchConfig{
		Kind: domain.KindTreatment,
		Attributes: []domain.AttributeSearchConfig{
			{Key: "treatment_name", Weight: 0.5, MainField: true},
			{Key: "data_source", Weight: 0.5},
		},
	}
	a := domain.NewSourceRecord("a", domain.KindTreatment, domain.Attribute{Key: "treatment_name", Value: "x"})
	b := domain.NewSourceRecord("b", domain.KindTreatment,
		domain.Attribute{Key: "treatment_name", Value: "x"},
		domain.Attribute{Key: "data_source", Value: "not provided"},
	)

	c := NewWeightedComparator(nil, nil)
	assert.InDelta(t, 1.0, c.Compare(kc, a, b), 1e-9)
}
