package services

import (
	"slices"
	"unicode/utf8"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// QueryBuilder turns a source record into a boosted suggestion query.
// It is stateless apart from configuration and safe for concurrent use.
type QueryBuilder struct {
	cfg      *domain.Config
	analyzer *Analyzer
}

// NewQueryBuilder creates a query builder.
func NewQueryBuilder(cfg *domain.Config) *QueryBuilder {
	return &QueryBuilder{cfg: cfg, analyzer: NewAnalyzer(cfg.Query.MaxTokens)}
}

// ontologyField pairs an ontology text field with its relative weight.
type ontologyField struct {
	key    domain.FieldKey
	weight float64
}

// Build constructs the query for a record. The rule family searches
// per-attribute rule fields of the record's kind; the ontology family
// searches label, synonyms and definition of compatible term types. The
// record's own key and calibration documents are excluded.
func (b *QueryBuilder) Build(record domain.SourceRecord) (domain.Query, error) {
	kc, err := b.cfg.SearchConfig(record.Kind)
	if err != nil {
		return domain.Query{}, err
	}
	main, err := kc.MainField()
	if err != nil {
		return domain.Query{}, err
	}

	mainTokens := b.tokens(record, main.Key)
	combined := b.combinedTokens(record, kc, main, mainTokens)
	boosts := b.cfg.Boosts

	rule := domain.Family{
		Name:   domain.SourceRule,
		Filter: &domain.Filter{Field: domain.FieldEntityKind, Values: []string{string(record.Kind)}},
	}
	for _, attr := range kc.Attributes {
		if attr.Weight <= 0 {
			continue
		}
		field := domain.RuleField(attr.Key)
		tokens := b.tokens(record, attr.Key)
		base := attr.Weight * boosts.Rule

		rule.Clauses = append(rule.Clauses, b.termClauses(field, tokens, base*boosts.Term)...)
		if attr.Key == main.Key {
			rule.Clauses = append(rule.Clauses, phraseClause(field, tokens, base*boosts.Phrase))
			if combined != nil {
				rule.Clauses = append(rule.Clauses, b.termClauses(field, combined, base*boosts.MultiFieldTerm)...)
				rule.Clauses = append(rule.Clauses, phraseClause(field, combined, base*boosts.MultiFieldPhrase))
			}
		}
	}

	ontology := domain.Family{
		Name:   domain.SourceOntology,
		Filter: &domain.Filter{Field: domain.FieldTermType, Values: termTypeValues(record.Kind)},
	}
	fields := []ontologyField{
		{domain.FieldLabel, b.cfg.OntologyFields.Label},
		{domain.FieldSynonyms, b.cfg.OntologyFields.Synonym},
		{domain.FieldDefinition, b.cfg.OntologyFields.Definition},
	}
	for _, attr := range kc.Attributes {
		if !attr.SearchOnOntology {
			continue
		}
		v, _ := record.Value(attr.Key)
		if IsUnknown(v) {
			continue
		}
		tokens := b.tokens(record, attr.Key)
		for _, f := range fields {
			if f.weight <= 0 {
				continue
			}
			base := boosts.Ontology * f.weight
			ontology.Clauses = append(ontology.Clauses, b.termClauses(f.key, tokens, base*boosts.Term)...)
			if attr.Key == main.Key {
				ontology.Clauses = append(ontology.Clauses, phraseClause(f.key, tokens, base*boosts.Phrase))
				if combined != nil {
					ontology.Clauses = append(ontology.Clauses, b.termClauses(f.key, combined, base*boosts.MultiFieldTerm)...)
					ontology.Clauses = append(ontology.Clauses, phraseClause(f.key, combined, base*boosts.MultiFieldPhrase))
				}
			}
		}
	}

	q := domain.Query{
		ExcludeIDs:         []string{record.Key()},
		ExcludeSourceKinds: []domain.SourceKind{domain.SourceCalibration},
		Limit:              b.cfg.Query.Limit,
	}
	for _, f := range []domain.Family{rule, ontology} {
		if len(f.Clauses) > 0 {
			q.Families = append(q.Families, f)
		}
	}
	return q, nil
}

// tokens analyses an attribute value of the record. Missing values are
// unknown.
func (b *QueryBuilder) tokens(record domain.SourceRecord, key string) []string {
	v, _ := record.Value(key)
	return b.analyzer.Tokens(v)
}

// combinedTokens joins the known values of secondary multi-field attributes
// with the main value. It returns nil when fewer than two multi-field
// attributes are configured or when nothing would be added to the main
// value.
func (b *QueryBuilder) combinedTokens(
	record domain.SourceRecord, kc domain.KindSearchConfig,
	main domain.AttributeSearchConfig, mainTokens []string,
) []string {
	var multi int
	var combined []string
	for _, attr := range kc.Attributes {
		if !attr.MultiField {
			continue
		}
		multi++
		if attr.Key == main.Key {
			continue
		}
		v, _ := record.Value(attr.Key)
		if IsUnknown(v) {
			continue
		}
		combined = append(combined, b.analyzer.Tokens(v)...)
	}
	if multi < 2 || len(combined) == 0 {
		return nil
	}
	combined = append(combined, mainTokens...)
	if limit := b.cfg.Query.MaxTokens; limit > 0 && len(combined) > limit {
		combined = combined[:limit]
	}
	if slices.Equal(combined, mainTokens) {
		return nil
	}
	return combined
}

// termClauses builds one clause per distinct token: fuzzy when the token is
// long enough, exact otherwise.
func (b *QueryBuilder) termClauses(field domain.FieldKey, tokens []string, boost float64) []domain.Clause {
	distinct := Distinct(tokens)
	clauses := make([]domain.Clause, 0, len(distinct))
	for _, tok := range distinct {
		c := domain.Clause{Field: field, Kind: domain.MatchTerm, Tokens: []string{tok}, Boost: boost}
		if b.cfg.Query.Fuzziness > 0 && tok != UnknownToken && utf8.RuneCountInString(tok) >= b.cfg.Query.MinFuzzyLength {
			c.Kind = domain.MatchFuzzy
			c.Fuzziness = b.cfg.Query.Fuzziness
		}
		clauses = append(clauses, c)
	}
	return clauses
}

func phraseClause(field domain.FieldKey, tokens []string, boost float64) domain.Clause {
	return domain.Clause{Field: field, Kind: domain.MatchPhrase, Tokens: slices.Clone(tokens), Boost: boost}
}

func termTypeValues(kind domain.EntityKind) []string {
	types := domain.TermTypesFor(kind)
	values := make([]string, 0, len(types))
	for _, t := range types {
		values = append(values, string(t))
	}
	return values
}
