package domain

import (
	"fmt"
	"strings"
)

// MatchKind is the matching mode of a query clause.
type MatchKind string

const (
	// MatchFuzzy matches a single token within an edit distance.
	MatchFuzzy MatchKind = "fuzzy"

	// MatchTerm matches a single token exactly.
	MatchTerm MatchKind = "term"

	// MatchPhrase matches an ordered token sequence.
	MatchPhrase MatchKind = "phrase"
)

// Clause is one boosted leaf of a suggestion query.
type Clause struct {
	Field     FieldKey  `json:"field"`
	Kind      MatchKind `json:"kind"`
	Tokens    []string  `json:"tokens"`
	Fuzziness int       `json:"fuzziness,omitempty"`
	Boost     float64   `json:"boost"`
}

// String renders the clause in a compact, deterministic form.
func (c Clause) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s:%q", c.Kind, c.Field.Name(), strings.Join(c.Tokens, " "))
	if c.Kind == MatchFuzzy {
		fmt.Fprintf(&b, "~%d", c.Fuzziness)
	}
	fmt.Fprintf(&b, ")^%g", c.Boost)
	return b.String()
}

// Filter restricts a family to documents whose keyword field equals one of
// the listed values. It contributes nothing to the score.
type Filter struct {
	Field  FieldKey `json:"field"`
	Values []string `json:"values"`
}

// Family is a group of clauses combined with OR semantics. Families of one
// query are combined by taking the maximum family score per document.
type Family struct {
	Name    SourceKind `json:"name"`
	Clauses []Clause   `json:"clauses"`
	Filter  *Filter    `json:"filter,omitempty"`
}

// Query is the structured suggestion query built for one source record.
type Query struct {
	Families []Family `json:"families"`

	// ExcludeIDs lists document ids that must never match.
	ExcludeIDs []string `json:"exclude_ids,omitempty"`

	// ExcludeSourceKinds lists source kinds that must never match.
	ExcludeSourceKinds []SourceKind `json:"exclude_source_kinds,omitempty"`

	// RestrictID limits matching to a single document id. It is set only on
	// calibration queries.
	RestrictID string `json:"restrict_id,omitempty"`

	// Limit bounds the number of hits returned.
	Limit int `json:"limit"`
}

// Empty reports whether the query has no clause to score.
func (q Query) Empty() bool {
	for _, f := range q.Families {
		if len(f.Clauses) > 0 {
			return false
		}
	}
	return true
}

// Calibration returns the same scoring query restricted to one calibration
// document. Exclusions are dropped because they would remove the target.
func (q Query) Calibration(id string) Query {
	return Query{
		Families:   q.Families,
		RestrictID: id,
		Limit:      1,
	}
}

// String renders the whole query deterministically.
func (q Query) String() string {
	var b strings.Builder
	for i, f := range q.Families {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(string(f.Name))
		b.WriteString("{")
		for j, c := range f.Clauses {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(c.String())
		}
		b.WriteString("}")
		if f.Filter != nil {
			fmt.Fprintf(&b, "[%s in %s]", f.Filter.Field.Name(), strings.Join(f.Filter.Values, ","))
		}
	}
	if len(q.ExcludeIDs) > 0 {
		fmt.Fprintf(&b, " -id:%s", strings.Join(q.ExcludeIDs, ","))
	}
	for _, k := range q.ExcludeSourceKinds {
		fmt.Fprintf(&b, " -source_kind:%s", k)
	}
	if q.RestrictID != "" {
		fmt.Fprintf(&b, " +id:%s", q.RestrictID)
	}
	return b.String()
}
