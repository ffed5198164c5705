package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	schema, err := domain.NewSchema(domain.DefaultConfig())
	require.NoError(t, err)
	h, err := Open("", schema)
	require.NoError(t, err)
	e := New(h, schema)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func ruleDoc(id, name, kind string) domain.IndexedDocument {
	return domain.IndexedDocument{
		ID:         id,
		SourceKind: domain.SourceRule,
		Rule: &domain.RuleFields{
			EntityKind:    domain.EntityKind(kind),
			Values:        map[string]string{"treatment_name": name, "data_source": "pdx"},
			MappedTermURL: "http://example.org/" + id,
		},
	}
}

func termDoc(id, label string, t domain.TermType, synonyms ...string) domain.IndexedDocument {
	return domain.IndexedDocument{
		ID:         id,
		SourceKind: domain.SourceOntology,
		Ontology: &domain.OntologyFields{
			TermType: t,
			URL:      "http://example.org/" + id,
			Label:    label,
			Synonyms: synonyms,
		},
	}
}

func nameClause(token string, boost float64) domain.Clause {
	return domain.Clause{
		Field:  domain.RuleField("treatment_name"),
		Kind:   domain.MatchTerm,
		Tokens: []string{token},
		Boost:  boost,
	}
}

func ruleFamily(clauses ...domain.Clause) domain.Family {
	return domain.Family{
		Name:    domain.SourceRule,
		Clauses: clauses,
		Filter:  &domain.Filter{Field: domain.FieldEntityKind, Values: []string{"treatment"}},
	}
}

func labelFamily(clauses ...domain.Clause) domain.Family {
	return domain.Family{
		Name:    domain.SourceOntology,
		Clauses: clauses,
		Filter:  &domain.Filter{Field: domain.FieldTermType, Values: []string{"treatment", "regimen"}},
	}
}

func commitDocs(t *testing.T, e *Engine, docs ...domain.IndexedDocument) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Add(ctx, docs...))
	require.NoError(t, e.Commit(ctx))
}

func ids(hits []domain.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestEngine_CommitMakesDocumentsVisible(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, ruleDoc("r1", "cisplatin", "treatment")))
	assert.Equal(t, 1, e.Pending())

	n, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, e.Commit(ctx))
	assert.Zero(t, e.Pending())

	n, err = e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestEngine_Rollback(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Add(ctx, ruleDoc("r1", "cisplatin", "treatment")))
	e.Rollback()
	assert.Zero(t, e.Pending())
	require.NoError(t, e.Commit(ctx))

	n, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngine_Add_RejectsUndeclaredField(t *testing.T) {
	e := newTestEngine(t)
	doc := ruleDoc("r1", "cisplatin", "treatment")
	doc.Rule.Values["dosage"] = "high"

	err := e.Add(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrMissingSearchConfig)
	assert.Zero(t, e.Pending())
}

func TestEngine_DeleteByField(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commitDocs(t, e,
		ruleDoc("r1", "cisplatin", "treatment"),
		ruleDoc("r2", "carboplatin", "treatment"),
		termDoc("t1", "cisplatin", domain.TermTreatment),
	)

	n, err := e.DeleteByField(ctx, domain.FieldSourceKind, string(domain.SourceRule))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Staged deletes are invisible until commit.
	count, err := e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, e.Commit(ctx))
	count, err = e.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestEngine_DeleteByField_ThenReAdd(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commitDocs(t, e, ruleDoc("r1", "cisplatin", "treatment"))

	_, err := e.DeleteByField(ctx, domain.FieldSourceKind, string(domain.SourceRule))
	require.NoError(t, err)
	require.NoError(t, e.Add(ctx, ruleDoc("r1", "carboplatin", "treatment")))
	require.NoError(t, e.Commit(ctx))

	hits, err := e.Search(ctx, domain.Query{Families: []domain.Family{ruleFamily(nameClause("carboplatin", 1))}})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(hits))
}

func TestEngine_SearchSeesLastCommitDuringReload(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commitDocs(t, e, ruleDoc("r1", "cisplatin", "treatment"))
	q := domain.Query{Families: []domain.Family{ruleFamily(nameClause("cisplatin", 1))}}

	_, err := e.DeleteByField(ctx, domain.FieldSourceKind, string(domain.SourceRule))
	require.NoError(t, err)
	require.NoError(t, e.Add(ctx, ruleDoc("r2", "cisplatin", "treatment")))

	hits, err := e.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(hits))

	require.NoError(t, e.Commit(ctx))

	hits, err = e.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(hits))
}

func TestEngine_DeleteByField_RejectsTextField(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.DeleteByField(context.Background(), domain.FieldLabel, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngine_Search_EmptyQuery(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), domain.Query{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_Search_FilterRestrictsFamily(t *testing.T) {
	e := newTestEngine(t)
	commitDocs(t, e,
		ruleDoc("r1", "cisplatin", "treatment"),
		ruleDoc("r2", "cisplatin", "diagnosis"),
	)

	hits, err := e.Search(context.Background(), domain.Query{
		Families: []domain.Family{ruleFamily(nameClause("cisplatin", 1))},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r1", hits[0].ID)
	assert.Equal(t, domain.SourceRule, hits[0].SourceKind)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestEngine_Search_Exclusions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commitDocs(t, e,
		ruleDoc("r1", "cisplatin", "treatment"),
		ruleDoc("r2", "cisplatin", "treatment"),
	)
	calib := ruleDoc("calibration:x", "cisplatin", "treatment")
	calib.SourceKind = domain.SourceCalibration
	require.NoError(t, e.PutCalibration(ctx, calib))

	hits, err := e.Search(ctx, domain.Query{
		Families:           []domain.Family{ruleFamily(nameClause("cisplatin", 1))},
		ExcludeIDs:         []string{"r1"},
		ExcludeSourceKinds: []domain.SourceKind{domain.SourceCalibration},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(hits))
}

func TestEngine_Search_FamiliesMergeByMax(t *testing.T) {
	e := newTestEngine(t)
	commitDocs(t, e,
		ruleDoc("r1", "cisplatin", "treatment"),
		termDoc("t1", "cisplatin", domain.TermTreatment),
		termDoc("t2", "carboplatin", domain.TermDiagnosis),
	)

	label := domain.Clause{Field: domain.FieldLabel, Kind: domain.MatchTerm, Tokens: []string{"cisplatin"}, Boost: 1}
	hits, err := e.Search(context.Background(), domain.Query{
		Families: []domain.Family{ruleFamily(nameClause("cisplatin", 1)), labelFamily(label)},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "t1"}, ids(hits))

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	kinds := map[string]domain.SourceKind{}
	for _, h := range hits {
		kinds[h.ID] = h.SourceKind
	}
	assert.Equal(t, domain.SourceOntology, kinds["t1"])
}

func TestEngine_Search_TiesOrderedByID(t *testing.T) {
	e := newTestEngine(t)
	commitDocs(t, e,
		ruleDoc("r3", "cisplatin", "treatment"),
		ruleDoc("r1", "cisplatin", "treatment"),
		ruleDoc("r2", "cisplatin", "treatment"),
	)

	hits, err := e.Search(context.Background(), domain.Query{
		Families: []domain.Family{ruleFamily(nameClause("cisplatin", 1))},
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(hits))
}

func TestEngine_Search_FuzzyAndPhrase(t *testing.T) {
	e := newTestEngine(t)
	commitDocs(t, e,
		termDoc("t1", "small cell lung carcinoma", domain.TermTreatment),
		termDoc("t2", "lung small cell carcinoma", domain.TermTreatment),
	)
	ctx := context.Background()

	fuzzy := domain.Clause{Field: domain.FieldLabel, Kind: domain.MatchFuzzy, Tokens: []string{"carcinomo"}, Fuzziness: 1, Boost: 1}
	hits, err := e.Search(ctx, domain.Query{Families: []domain.Family{labelFamily(fuzzy)}})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	phrase := domain.Clause{Field: domain.FieldLabel, Kind: domain.MatchPhrase, Tokens: []string{"small", "cell", "lung"}, Boost: 1}
	hits, err = e.Search(ctx, domain.Query{Families: []domain.Family{labelFamily(phrase)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids(hits))
}

func TestEngine_Search_MultiValueSynonyms(t *testing.T) {
	e := newTestEngine(t)
	commitDocs(t, e, termDoc("t1", "cisplatin", domain.TermTreatment, "cddp", "platinol"))

	syn := domain.Clause{Field: domain.FieldSynonyms, Kind: domain.MatchTerm, Tokens: []string{"platinol"}, Boost: 1}
	hits, err := e.Search(context.Background(), domain.Query{Families: []domain.Family{labelFamily(syn)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids(hits))
}

func TestEngine_Calibration(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commitDocs(t, e, ruleDoc("r1", "cisplatin", "treatment"))

	calib := ruleDoc("calibration:abc", "cisplatin", "treatment")
	calib.SourceKind = domain.SourceCalibration
	require.NoError(t, e.PutCalibration(ctx, calib))

	q := domain.Query{Families: []domain.Family{ruleFamily(nameClause("cisplatin", 1))}}
	hits, err := e.Search(ctx, q.Calibration("calibration:abc"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "calibration:abc", hits[0].ID)
	assert.Equal(t, domain.SourceCalibration, hits[0].SourceKind)

	// The calibration document carries the same text as r1, so it scores the same.
	real, err := e.Search(ctx, q)
	require.NoError(t, err)
	require.NotEmpty(t, real)
	assert.InDelta(t, hits[0].Score, real[0].Score, 1e-9)

	require.NoError(t, e.RemoveCalibration(ctx, "calibration:abc"))
	hits, err = e.Search(ctx, q.Calibration("calibration:abc"))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_PutCalibration_RejectsOtherKinds(t *testing.T) {
	e := newTestEngine(t)
	err := e.PutCalibration(context.Background(), ruleDoc("r1", "cisplatin", "treatment"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngine_Close(t *testing.T) {
	schema, err := domain.NewSchema(domain.DefaultConfig())
	require.NoError(t, err)
	h, err := Open("", schema)
	require.NoError(t, err)
	e := New(h, schema)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	ctx := context.Background()
	assert.ErrorIs(t, e.Add(ctx, ruleDoc("r1", "cisplatin", "treatment")), domain.ErrIndexClosed)
	_, err = e.Search(ctx, domain.Query{Families: []domain.Family{ruleFamily(nameClause("cisplatin", 1))}})
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
}

func TestHandle_RefCount(t *testing.T) {
	schema, err := domain.NewSchema(domain.DefaultConfig())
	require.NoError(t, err)
	h, err := Open("", schema)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Refs())

	_, err = h.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 2, h.Refs())

	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	assert.Zero(t, h.Refs())

	_, err = h.Acquire()
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	assert.ErrorIs(t, h.Release(), domain.ErrIndexClosed)
}

func TestOpen_CreatesAndReopensOnDisk(t *testing.T) {
	schema, err := domain.NewSchema(domain.DefaultConfig())
	require.NoError(t, err)
	path := t.TempDir() + "/index"

	h, err := Open(path, schema)
	require.NoError(t, err)
	e := New(h, schema)
	commitDocs(t, e, ruleDoc("r1", "cisplatin", "treatment"))
	require.NoError(t, e.Close())

	h, err = Open(path, schema)
	require.NoError(t, err)
	e = New(h, schema)
	defer e.Close()

	n, err := e.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}
