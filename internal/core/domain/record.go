package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// EntityKind tags what a SourceRecord describes.
type EntityKind string

const (
	// KindTreatment is a treatment record (drug, procedure, regimen).
	KindTreatment EntityKind = "treatment"

	// KindDiagnosis is a diagnosis record.
	KindDiagnosis EntityKind = "diagnosis"
)

// AllEntityKinds returns the recognised entity kinds.
func AllEntityKinds() []EntityKind {
	return []EntityKind{KindTreatment, KindDiagnosis}
}

// IsValid reports whether the kind is recognised.
func (k EntityKind) IsValid() bool {
	return k == KindTreatment || k == KindDiagnosis
}

// ParseEntityKind converts a string into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrUnsupportedType
	}
	return k, nil
}

// Attribute is a single attribute-key/value pair supplied by a provider.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SourceRecord is a provider-supplied set of clinical attribute values.
// Attribute order is preserved as supplied.
type SourceRecord struct {
	// ID is the provider's opaque identifier.
	ID string `json:"id"`

	// Kind is the entity kind the record describes.
	Kind EntityKind `json:"kind"`

	// Attributes holds the ordered attribute values.
	Attributes []Attribute `json:"attributes"`
}

// NewSourceRecord builds a SourceRecord from ordered attributes.
func NewSourceRecord(id string, kind EntityKind, attrs ...Attribute) SourceRecord {
	return SourceRecord{ID: id, Kind: kind, Attributes: attrs}
}

// Value returns the value for an attribute key.
func (r SourceRecord) Value(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Key returns the content hash identifying the record. It is derived from
// the kind and the normalised attribute values only, so two records with
// the same content share a key regardless of provider ID or attribute order.
func (r SourceRecord) Key() string {
	pairs := make([]string, 0, len(r.Attributes))
	for _, a := range r.Attributes {
		pairs = append(pairs, strings.ToLower(strings.TrimSpace(a.Key))+"="+canonicalValue(a.Value))
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(string(r.Kind))
	for _, p := range pairs {
		b.WriteByte('\n')
		b.WriteString(p)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalValue lower-cases and collapses whitespace.
func canonicalValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}

// RuleStatus is the curation state of a stored record.
type RuleStatus string

const (
	// RuleUnmapped is a record awaiting a mapping.
	RuleUnmapped RuleStatus = "unmapped"

	// RuleMapped is a record with a committed mapping. Only mapped rules
	// are indexed as match targets.
	RuleMapped RuleStatus = "mapped"
)

// MappingSource records who committed a mapping.
type MappingSource string

const (
	// MappedByCurator is a mapping accepted by a human curator.
	MappedByCurator MappingSource = "curator"

	// MappedAutomatically is a mapping committed by the decision engine.
	MappedAutomatically MappingSource = "automatic"
)

// Rule is a stored SourceRecord and, once mapped, the ontology term it maps to.
type Rule struct {
	Record          SourceRecord  `json:"record"`
	Status          RuleStatus    `json:"status"`
	MappedTermURL   string        `json:"mapped_term_url,omitempty"`
	MappedTermLabel string        `json:"mapped_term_label,omitempty"`
	MappedBy        MappingSource `json:"mapped_by,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Key returns the content hash of the underlying record.
func (r Rule) Key() string {
	return r.Record.Key()
}

// IsMapped reports whether the rule carries a committed mapping.
func (r Rule) IsMapped() bool {
	return r.Status == RuleMapped && r.MappedTermURL != ""
}
