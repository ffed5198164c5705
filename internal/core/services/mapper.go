package services

import (
	"fmt"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// DocumentMapper converts rules, ontology terms and calibration records into
// index documents. Text is stored in analysed form without truncation; only
// queries are bounded in length.
type DocumentMapper struct {
	cfg      *domain.Config
	schema   domain.Schema
	analyzer *Analyzer
}

// NewDocumentMapper validates the per-kind search configuration and builds
// the index schema.
func NewDocumentMapper(cfg *domain.Config) (*DocumentMapper, error) {
	for _, kind := range cfg.Kinds() {
		kc, err := cfg.SearchConfig(kind)
		if err != nil {
			return nil, err
		}
		if err := kc.Validate(); err != nil {
			return nil, err
		}
	}
	schema, err := domain.NewSchema(cfg)
	if err != nil {
		return nil, err
	}
	return &DocumentMapper{cfg: cfg, schema: schema, analyzer: NewAnalyzer(0)}, nil
}

// Schema returns the index schema.
func (m *DocumentMapper) Schema() domain.Schema {
	return m.schema
}

// FromRule maps a mapped rule to a rule document keyed by the record's
// content hash.
func (m *DocumentMapper) FromRule(rule domain.Rule) (domain.IndexedDocument, error) {
	fields, err := m.ruleFields(rule.Record)
	if err != nil {
		return domain.IndexedDocument{}, err
	}
	fields.MappedTermURL = rule.MappedTermURL
	fields.MappedTermLabel = rule.MappedTermLabel

	doc := domain.IndexedDocument{
		ID:         rule.Key(),
		SourceKind: domain.SourceRule,
		Rule:       fields,
	}
	return doc, m.schema.Validate(doc)
}

// FromTerm maps an ontology term to an ontology document.
func (m *DocumentMapper) FromTerm(term domain.OntologyTerm) (domain.IndexedDocument, error) {
	if term.URL == "" {
		return domain.IndexedDocument{}, fmt.Errorf("%w: term %q has no url", domain.ErrInvalidInput, term.Label)
	}
	if !term.Type.IsValid() {
		return domain.IndexedDocument{}, fmt.Errorf("%w: term %s type %q", domain.ErrUnsupportedType, term.URL, term.Type)
	}
	id := term.ID
	if id == "" {
		id = domain.TermID(term.Type, term.URL)
	}

	synonyms := make([]string, 0, len(term.Synonyms))
	for _, s := range term.Synonyms {
		if text := m.optionalText(s); text != "" {
			synonyms = append(synonyms, text)
		}
	}

	doc := domain.IndexedDocument{
		ID:         id,
		SourceKind: domain.SourceOntology,
		Ontology: &domain.OntologyFields{
			TermType:   term.Type,
			URL:        term.URL,
			Label:      m.optionalText(term.Label),
			Definition: m.optionalText(term.Definition),
			Synonyms:   synonyms,
		},
	}
	return doc, m.schema.Validate(doc)
}

// Calibration builds the synthetic perfect match for a record: rule fields
// set to the record's own values and the ontology label set to the main
// attribute's value. The document carries the record's entity kind and
// primary term type so that family filters accept it.
func (m *DocumentMapper) Calibration(record domain.SourceRecord, id string) (domain.IndexedDocument, error) {
	fields, err := m.ruleFields(record)
	if err != nil {
		return domain.IndexedDocument{}, err
	}
	kc, err := m.cfg.SearchConfig(record.Kind)
	if err != nil {
		return domain.IndexedDocument{}, err
	}
	main, err := kc.MainField()
	if err != nil {
		return domain.IndexedDocument{}, err
	}
	mainValue, _ := record.Value(main.Key)

	var termType domain.TermType
	if types := domain.TermTypesFor(record.Kind); len(types) > 0 {
		termType = types[0]
	}

	doc := domain.IndexedDocument{
		ID:         id,
		SourceKind: domain.SourceCalibration,
		Rule:       fields,
		Ontology: &domain.OntologyFields{
			TermType: termType,
			Label:    m.analyzer.Text(mainValue),
		},
	}
	return doc, m.schema.Validate(doc)
}

// ruleFields analyses every configured attribute of the record's kind.
// Attributes without configuration are a configuration error; configured
// attributes the record lacks are stored as unknown.
func (m *DocumentMapper) ruleFields(record domain.SourceRecord) (*domain.RuleFields, error) {
	kc, err := m.cfg.SearchConfig(record.Kind)
	if err != nil {
		return nil, err
	}
	for _, a := range record.Attributes {
		if _, ok := kc.Attribute(a.Key); !ok {
			return nil, fmt.Errorf("%w: attribute %q of kind %s", domain.ErrMissingSearchConfig, a.Key, record.Kind)
		}
	}

	values := make(map[string]string, len(kc.Attributes))
	for _, attr := range kc.Attributes {
		v, _ := record.Value(attr.Key)
		values[attr.Key] = m.analyzer.Text(v)
	}
	return &domain.RuleFields{EntityKind: record.Kind, Values: values}, nil
}

// optionalText analyses ontology text, keeping absent values absent.
func (m *DocumentMapper) optionalText(v string) string {
	if IsUnknown(v) {
		return ""
	}
	return m.analyzer.Text(v)
}
