package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// familyQuery translates one family into a bleve query. Scoring clauses are
// OR-ed; the filter, id restriction and exclusions do not score.
func familyQuery(f domain.Family, q domain.Query) query.Query {
	clauses := make([]query.Query, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		if cq := clauseQuery(c); cq != nil {
			clauses = append(clauses, cq)
		}
	}
	if len(clauses) == 0 {
		return nil
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(bleve.NewDisjunctionQuery(clauses...))

	if f.Filter != nil && len(f.Filter.Values) > 0 {
		bq.AddMust(filterQuery(f.Filter))
	}

	if q.RestrictID != "" {
		only := bleve.NewDocIDQuery([]string{q.RestrictID})
		only.SetBoost(0)
		bq.AddMust(only)
		return bq
	}

	if len(q.ExcludeIDs) > 0 {
		bq.AddMustNot(bleve.NewDocIDQuery(q.ExcludeIDs))
	}
	for _, kind := range q.ExcludeSourceKinds {
		bq.AddMustNot(keywordQuery(domain.FieldSourceKind, string(kind)))
	}
	return bq
}

func clauseQuery(c domain.Clause) query.Query {
	if len(c.Tokens) == 0 {
		return nil
	}
	field := c.Field.Name()

	switch c.Kind {
	case domain.MatchFuzzy:
		fq := bleve.NewFuzzyQuery(c.Tokens[0])
		fq.SetField(field)
		fq.SetFuzziness(c.Fuzziness)
		fq.SetBoost(c.Boost)
		return fq
	case domain.MatchTerm:
		tq := bleve.NewTermQuery(c.Tokens[0])
		tq.SetField(field)
		tq.SetBoost(c.Boost)
		return tq
	case domain.MatchPhrase:
		pq := bleve.NewPhraseQuery(c.Tokens, field)
		pq.SetBoost(c.Boost)
		return pq
	}
	return nil
}

// filterQuery matches any of the filter values with zero weight.
func filterQuery(f *domain.Filter) query.Query {
	values := make([]query.Query, 0, len(f.Values))
	for _, v := range f.Values {
		tq := keywordQuery(f.Field, v)
		tq.SetBoost(0)
		values = append(values, tq)
	}
	dq := bleve.NewDisjunctionQuery(values...)
	dq.SetBoost(0)
	return dq
}

func keywordQuery(field domain.FieldKey, value string) *query.TermQuery {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field.Name())
	return tq
}
