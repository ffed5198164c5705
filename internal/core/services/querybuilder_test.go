package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

func TestQueryBuilder_Build_Treatment(t *testing.T) {
	b := NewQueryBuilder(domain.DefaultConfig())
	r := treatment("p1", "Cisplatin", "Chemotherapy", "PDX")

	q, err := b.Build(r)
	require.NoError(t, err)

	require.Len(t, q.Families, 2)
	assert.Equal(t, []string{r.Key()}, q.ExcludeIDs)
	assert.Equal(t, []domain.SourceKind{domain.SourceCalibration}, q.ExcludeSourceKinds)
	assert.Empty(t, q.RestrictID)
	assert.Equal(t, 10, q.Limit)

	name := domain.RuleField("treatment_name")
	rule := familyOf(q, domain.SourceRule)
	require.NotNil(t, rule)
	assert.Equal(t, &domain.Filter{Field: domain.FieldEntityKind, Values: []string{"treatment"}}, rule.Filter)

	want := []domain.Clause{
		{Field: name, Kind: domain.MatchFuzzy, Tokens: []string{"cisplatin"}, Fuzziness: 1, Boost: 0.7},
		{Field: name, Kind: domain.MatchPhrase, Tokens: []string{"cisplatin"}, Boost: 1.4},
		{Field: name, Kind: domain.MatchFuzzy, Tokens: []string{"chemotherapy"}, Fuzziness: 1, Boost: 0.35},
		{Field: name, Kind: domain.MatchFuzzy, Tokens: []string{"cisplatin"}, Fuzziness: 1, Boost: 0.35},
		{Field: name, Kind: domain.MatchPhrase, Tokens: []string{"chemotherapy", "cisplatin"}, Boost: 0.7},
		{Field: domain.RuleField("treatment_type"), Kind: domain.MatchFuzzy, Tokens: []string{"chemotherapy"}, Fuzziness: 1, Boost: 0.1},
		{Field: domain.RuleField("data_source"), Kind: domain.MatchTerm, Tokens: []string{"pdx"}, Boost: 0.2},
	}
	require.Len(t, rule.Clauses, len(want))
	for i, c := range rule.Clauses {
		assert.Equal(t, want[i].Field, c.Field, "clause %d", i)
		assert.Equal(t, want[i].Kind, c.Kind, "clause %d", i)
		assert.Equal(t, want[i].Tokens, c.Tokens, "clause %d", i)
		assert.Equal(t, want[i].Fuzziness, c.Fuzziness, "clause %d", i)
		assert.InDelta(t, want[i].Boost, c.Boost, 1e-9, "clause %d", i)
	}

	onto := familyOf(q, domain.SourceOntology)
	require.NotNil(t, onto)
	assert.Equal(t, []string{"treatment", "regimen"}, onto.Filter.Values)
	assert.Len(t, onto.Clauses, 15)

	var labelPhrase, synonymPhrase *domain.Clause
	for i, c := range onto.Clauses {
		if c.Kind == domain.MatchPhrase && len(c.Tokens) == 1 {
			switch c.Field {
			case domain.FieldLabel:
				labelPhrase = &onto.Clauses[i]
			case domain.FieldSynonyms:
				synonymPhrase = &onto.Clauses[i]
			}
		}
	}
	require.NotNil(t, labelPhrase)
	require.NotNil(t, synonymPhrase)
	assert.InDelta(t, 2.0, labelPhrase.Boost, 1e-9)
	assert.InDelta(t, 0.6, synonymPhrase.Boost, 1e-9)
}

func TestQueryBuilder_Build_Deterministic(t *testing.T) {
	b := NewQueryBuilder(domain.DefaultConfig())
	r := diagnosis("d1", "Lung Adenocarcinoma", "Lung")

	q1, err := b.Build(r)
	require.NoError(t, err)
	q2, err := b.Build(r)
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	assert.Equal(t, q1.String(), q2.String())
}

func TestQueryBuilder_Build_UnknownMainValue(t *testing.T) {
	b := NewQueryBuilder(domain.DefaultConfig())
	r := treatment("p1", "Not Provided", "", "pdx")

	q, err := b.Build(r)
	require.NoError(t, err)

	assert.Nil(t, familyOf(q, domain.SourceOntology))
	rule := clausesOf(q, domain.SourceRule)
	require.NotEmpty(t, rule)
	assert.Equal(t, domain.MatchTerm, rule[0].Kind)
	assert.Equal(t, []string{UnknownToken}, rule[0].Tokens)
	for _, c := range rule {
		assert.NotEqual(t, []string{UnknownToken, UnknownToken}, c.Tokens)
	}
}

func TestQueryBuilder_Build_ShortTokensAreExact(t *testing.T) {
	b := NewQueryBuilder(domain.DefaultConfig())
	q, err := b.Build(treatment("p1", "ara c", "x", "pdx"))
	require.NoError(t, err)

	for _, c := range clausesOf(q, domain.SourceRule) {
		if c.Kind != domain.MatchPhrase {
			assert.Equal(t, domain.MatchTerm, c.Kind, c.String())
		}
	}
}

func TestQueryBuilder_Build_NoFuzziness(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Query.Fuzziness = 0
	q, err := NewQueryBuilder(cfg).Build(treatment("p1", "cisplatin", "chemotherapy", "pdx"))
	require.NoError(t, err)

	for _, f := range q.Families {
		for _, c := range f.Clauses {
			assert.NotEqual(t, domain.MatchFuzzy, c.Kind)
		}
	}
}

func TestQueryBuilder_Build_TruncatesQueryTokens(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Query.MaxTokens = 2
	q, err := NewQueryBuilder(cfg).Build(treatment("p1", "one two three four", "x", "pdx"))
	require.NoError(t, err)

	for _, f := range q.Families {
		for _, c := range f.Clauses {
			assert.LessOrEqual(t, len(c.Tokens), 2, c.String())
		}
	}
}

func TestQueryBuilder_Build_NoCombinedWithSingleMultiField(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Attributes[string(domain.KindTreatment)][1].MultiField = false
	q, err := NewQueryBuilder(cfg).Build(treatment("p1", "cisplatin", "chemotherapy", "pdx"))
	require.NoError(t, err)

	// Term and phrase on the main field plus one clause per other attribute.
	assert.Len(t, clausesOf(q, domain.SourceRule), 4)
	// Term and phrase on each of the three ontology fields.
	assert.Len(t, clausesOf(q, domain.SourceOntology), 6)
}

func TestQueryBuilder_Build_NoCombinedWhenSecondaryUnknown(t *testing.T) {
	b := NewQueryBuilder(domain.DefaultConfig())
	q, err := b.Build(treatment("p1", "cisplatin", "not collected", "pdx"))
	require.NoError(t, err)

	for _, c := range clausesOf(q, domain.SourceRule) {
		if c.Field == domain.RuleField("treatment_name") {
			assert.NotContains(t, c.Tokens, UnknownToken)
		}
	}
	assert.Len(t, clausesOf(q, domain.SourceRule), 4)
}

func TestQueryBuilder_Build_ZeroWeightSkipped(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Attributes[string(domain.KindTreatment)][2].Weight = 0
	q, err := NewQueryBuilder(cfg).Build(treatment("p1", "cisplatin", "chemotherapy", "pdx"))
	require.NoError(t, err)

	for _, c := range clausesOf(q, domain.SourceRule) {
		assert.NotEqual(t, domain.RuleField("data_source"), c.Field)
	}
}

func TestQueryBuilder_Build_UnconfiguredKind(t *testing.T) {
	cfg := domain.DefaultConfig()
	delete(cfg.Attributes, string(domain.KindDiagnosis))
	_, err := NewQueryBuilder(cfg).Build(diagnosis("d1", "melanoma", "skin"))
	assert.ErrorIs(t, err, domain.ErrMissingSearchConfig)
}

func TestQueryBuilder_Build_DiagnosisFilter(t *testing.T) {
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(diagnosis("d1", "melanoma", "skin"))
	require.NoError(t, err)

	onto := familyOf(q, domain.SourceOntology)
	require.NotNil(t, onto)
	assert.Equal(t, []string{"diagnosis"}, onto.Filter.Values)
}
