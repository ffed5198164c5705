package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// SourceKind tags the origin of an indexed document.
type SourceKind string

const (
	// SourceRule is a previously curated record.
	SourceRule SourceKind = "rule"

	// SourceOntology is a crawled ontology term.
	SourceOntology SourceKind = "ontology"

	// SourceCalibration is a synthetic perfect-match document. It never
	// appears in search results.
	SourceCalibration SourceKind = "calibration"
)

// FieldNamespace groups index fields.
type FieldNamespace string

const (
	// NamespaceMeta holds identifiers and tags shared by every document.
	NamespaceMeta FieldNamespace = "meta"

	// NamespaceRule holds one text field per record attribute.
	NamespaceRule FieldNamespace = "rule"

	// NamespaceOntology holds the ontology text fields.
	NamespaceOntology FieldNamespace = "ontology"
)

// rulePrefix prefixes every per-attribute rule field name.
const rulePrefix = "rule_"

// FieldKey identifies an index field. Names are derived, never concatenated
// by callers.
type FieldKey struct {
	Namespace FieldNamespace
	Attribute string
}

// Name returns the field name used by the index.
func (k FieldKey) Name() string {
	switch k.Namespace {
	case NamespaceRule:
		return rulePrefix + LowerCamel(k.Attribute)
	case NamespaceOntology:
		return "ontology_" + k.Attribute
	default:
		return k.Attribute
	}
}

// String implements fmt.Stringer.
func (k FieldKey) String() string {
	return string(k.Namespace) + ":" + k.Attribute
}

// Fixed fields.
var (
	FieldID              = FieldKey{NamespaceMeta, "id"}
	FieldSourceKind      = FieldKey{NamespaceMeta, "source_kind"}
	FieldEntityKind      = FieldKey{NamespaceMeta, "entity_kind"}
	FieldTermType        = FieldKey{NamespaceMeta, "term_type"}
	FieldMappedTermURL   = FieldKey{NamespaceMeta, "mapped_term_url"}
	FieldMappedTermLabel = FieldKey{NamespaceMeta, "mapped_term_label"}
	FieldTermURL         = FieldKey{NamespaceMeta, "term_url"}
	FieldLabel           = FieldKey{NamespaceOntology, "label"}
	FieldDefinition      = FieldKey{NamespaceOntology, "definition"}
	FieldSynonyms        = FieldKey{NamespaceOntology, "synonyms"}
)

// RuleField returns the rule field key for an attribute.
func RuleField(attribute string) FieldKey {
	return FieldKey{Namespace: NamespaceRule, Attribute: attribute}
}

// LowerCamel converts an attribute key such as "treatment_name" or
// "Primary Site" to lowerCamel form ("treatmentName", "primarySite").
func LowerCamel(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, p := range parts {
		runes := []rune(strings.ToLower(p))
		if i > 0 && len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

// FieldKind describes how a field is analysed.
type FieldKind int

const (
	// FieldKeyword is stored and matched verbatim.
	FieldKeyword FieldKind = iota

	// FieldText is tokenised free text.
	FieldText

	// FieldMultiValue is tokenised free text with several values.
	FieldMultiValue
)

// String implements fmt.Stringer.
func (k FieldKind) String() string {
	switch k {
	case FieldKeyword:
		return "keyword"
	case FieldText:
		return "text"
	case FieldMultiValue:
		return "multivalue"
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Schema maps every index field to its kind.
type Schema struct {
	fields map[FieldKey]FieldKind
}

// NewSchema builds the schema for a configuration: the fixed fields plus
// one rule text field per configured attribute of every kind.
func NewSchema(cfg *Config) (Schema, error) {
	s := Schema{fields: map[FieldKey]FieldKind{
		FieldID:              FieldKeyword,
		FieldSourceKind:      FieldKeyword,
		FieldEntityKind:      FieldKeyword,
		FieldTermType:        FieldKeyword,
		FieldMappedTermURL:   FieldKeyword,
		FieldMappedTermLabel: FieldKeyword,
		FieldTermURL:         FieldKeyword,
		FieldLabel:           FieldText,
		FieldDefinition:      FieldText,
		FieldSynonyms:        FieldMultiValue,
	}}

	names := make(map[string]FieldKey, len(s.fields))
	for k := range s.fields {
		names[k.Name()] = k
	}

	for _, kind := range cfg.Kinds() {
		kc, err := cfg.SearchConfig(kind)
		if err != nil {
			return Schema{}, err
		}
		for _, a := range kc.Attributes {
			key := RuleField(a.Key)
			if other, ok := names[key.Name()]; ok && other != key {
				return Schema{}, fmt.Errorf("%w: attribute %q collides with field %s", ErrInvalidConfig, a.Key, other)
			}
			names[key.Name()] = key
			s.fields[key] = FieldText
		}
	}
	return s, nil
}

// Kind returns the kind of a field.
func (s Schema) Kind(k FieldKey) (FieldKind, bool) {
	kind, ok := s.fields[k]
	return kind, ok
}

// Keys returns every field key sorted by name.
func (s Schema) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name() < keys[j].Name() })
	return keys
}

// Validate checks that every field of a document is declared.
func (s Schema) Validate(doc IndexedDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document without id", ErrInvalidInput)
	}
	for _, f := range doc.Fields() {
		kind, ok := s.fields[f.Key]
		if !ok {
			return fmt.Errorf("%w: field %s of document %s", ErrMissingSearchConfig, f.Key, doc.ID)
		}
		if kind != FieldMultiValue && len(f.Values) > 1 {
			return fmt.Errorf("%w: field %s is single-valued", ErrInvalidInput, f.Key)
		}
	}
	return nil
}

// RuleFields carries the per-attribute text of a rule (or calibration) document.
type RuleFields struct {
	EntityKind      EntityKind
	Values          map[string]string
	MappedTermURL   string
	MappedTermLabel string
}

// OntologyFields carries the text of an ontology (or calibration) document.
type OntologyFields struct {
	TermType   TermType
	URL        string
	Label      string
	Definition string
	Synonyms   []string
}

// IndexedDocument is the unit stored in the inverted index.
type IndexedDocument struct {
	ID         string
	SourceKind SourceKind
	Rule       *RuleFields
	Ontology   *OntologyFields
}

// Field is one flattened index field.
type Field struct {
	Key    FieldKey
	Values []string
}

// Fields flattens the document into index fields in a stable order.
// Empty values are omitted.
func (d IndexedDocument) Fields() []Field {
	var fields []Field
	add := func(k FieldKey, values ...string) {
		var kept []string
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			fields = append(fields, Field{Key: k, Values: kept})
		}
	}

	add(FieldID, d.ID)
	add(FieldSourceKind, string(d.SourceKind))

	if r := d.Rule; r != nil {
		add(FieldEntityKind, string(r.EntityKind))
		add(FieldMappedTermURL, r.MappedTermURL)
		add(FieldMappedTermLabel, r.MappedTermLabel)
		keys := make([]string, 0, len(r.Values))
		for k := range r.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(RuleField(k), r.Values[k])
		}
	}

	if o := d.Ontology; o != nil {
		add(FieldTermType, string(o.TermType))
		add(FieldTermURL, o.URL)
		add(FieldLabel, o.Label)
		add(FieldDefinition, o.Definition)
		add(FieldSynonyms, o.Synonyms...)
	}

	return fields
}

// Hit is a raw search result.
type Hit struct {
	ID         string
	SourceKind SourceKind
	Score      float64
}
