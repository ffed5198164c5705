package domain

import (
	"sort"
	"strings"
	"time"
)

// TermType tags which branch family an ontology term belongs to.
type TermType string

const (
	// TermDiagnosis is a disease/neoplasm term.
	TermDiagnosis TermType = "diagnosis"

	// TermTreatment is a drug or procedure term.
	TermTreatment TermType = "treatment"

	// TermRegimen is a combination regimen term.
	TermRegimen TermType = "regimen"
)

// AllTermTypes returns every recognised term type.
func AllTermTypes() []TermType {
	return []TermType{TermDiagnosis, TermTreatment, TermRegimen}
}

// IsValid reports whether the type is recognised.
func (t TermType) IsValid() bool {
	switch t {
	case TermDiagnosis, TermTreatment, TermRegimen:
		return true
	}
	return false
}

// ParseTermType converts a string into a TermType.
func ParseTermType(s string) (TermType, error) {
	t := TermType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrUnsupportedType
	}
	return t, nil
}

// TermTypesFor returns the ontology term types a record kind may map to.
// The first element is the kind's primary type.
func TermTypesFor(kind EntityKind) []TermType {
	switch kind {
	case KindDiagnosis:
		return []TermType{TermDiagnosis}
	case KindTreatment:
		return []TermType{TermTreatment, TermRegimen}
	}
	return nil
}

// OntologyTerm is a canonical term produced by the crawler.
// The (URL, Type) pair is unique.
type OntologyTerm struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Label      string   `json:"label"`
	Type       TermType `json:"type"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Definition string   `json:"definition,omitempty"`
}

// TermID derives a stable identifier from the term's IRI and type.
// The short form is the last path or fragment segment of the IRI.
func TermID(t TermType, iri string) string {
	short := iri
	if i := strings.LastIndexAny(short, "/#"); i >= 0 && i < len(short)-1 {
		short = short[i+1:]
	}
	return string(t) + ":" + strings.ToLower(short)
}

// TermKey identifies a term by its uniqueness pair.
type TermKey struct {
	URL  string
	Type TermType
}

// Key returns the term's uniqueness pair.
func (t OntologyTerm) Key() TermKey {
	return TermKey{URL: t.URL, Type: t.Type}
}

// UnprocessedOntologyURL is a crawl frontier entry. The frontier is the only
// record of crawl progress: an entry leaves it once its subtree listing is
// fully drained.
type UnprocessedOntologyURL struct {
	URL       string    `json:"url"`
	Type      TermType  `json:"type"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Exhausted reports whether the entry has used up its attempts.
func (u UnprocessedOntologyURL) Exhausted(maxAttempts int) bool {
	return u.Attempts > maxAttempts
}

// LoadOptions selects what an ontology load covers.
type LoadOptions struct {
	// Types restricts the crawl to these term types. Empty means all.
	Types []TermType

	// Reload deletes stored terms of the selected types before a fresh crawl.
	Reload bool
}

// Covers reports whether the options include a term type.
func (o LoadOptions) Covers(t TermType) bool {
	if len(o.Types) == 0 {
		return true
	}
	for _, x := range o.Types {
		if x == t {
			return true
		}
	}
	return false
}

// SelectedTypes returns the effective list of term types.
func (o LoadOptions) SelectedTypes() []TermType {
	if len(o.Types) == 0 {
		return AllTermTypes()
	}
	return o.Types
}

// LoadReport summarises one ontology load run.
type LoadReport struct {
	RunID       string           `json:"run_id"`
	Loaded      map[TermType]int `json:"loaded"`
	Processed   int              `json:"processed"`
	Failed      int              `json:"failed"`
	Exhausted   int              `json:"exhausted"`
	Resumed     bool             `json:"resumed"`
	Interrupted bool             `json:"interrupted"`
	Errors      []string         `json:"errors,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// TotalLoaded returns the number of newly loaded terms across types.
func (r LoadReport) TotalLoaded() int {
	var n int
	for _, c := range r.Loaded {
		n += c
	}
	return n
}

// ErrorMessage concatenates every error message encountered.
func (r LoadReport) ErrorMessage() string {
	return strings.Join(r.Errors, "\n")
}

// LoadedTypes returns the types with loaded terms, sorted.
func (r LoadReport) LoadedTypes() []TermType {
	types := make([]TermType, 0, len(r.Loaded))
	for t := range r.Loaded {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
