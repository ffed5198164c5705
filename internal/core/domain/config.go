package domain

import (
	"fmt"
	"math"
	"sort"
)

// EngineName selects a SuggestionEngine implementation.
type EngineName string

const (
	// EngineIndexed searches the inverted index (primary).
	EngineIndexed EngineName = "indexed"

	// EnginePairwise compares against every stored rule with the weighted comparator.
	EnginePairwise EngineName = "pairwise"
)

// AttributeSearchConfig configures how one attribute of an entity kind is
// indexed and searched.
type AttributeSearchConfig struct {
	// Key is the attribute key as supplied by providers.
	Key string `toml:"key" validate:"required"`

	// Weight is the relative importance of the attribute. The indexed engine
	// uses it as a boost; the pairwise engine requires weights to sum to 1.
	Weight float64 `toml:"weight" validate:"gte=0,lte=1"`

	// SearchOnOntology enables matching this attribute against ontology terms.
	SearchOnOntology bool `toml:"search_on_ontology"`

	// MainField marks the pivot attribute. Exactly one per kind.
	MainField bool `toml:"main_field"`

	// MultiField joins the attribute into the combined-text composite query.
	MultiField bool `toml:"multi_field"`
}

// KindSearchConfig is the attribute table for one entity kind.
type KindSearchConfig struct {
	Kind       EntityKind
	Attributes []AttributeSearchConfig
}

// Attribute returns the configuration for an attribute key.
func (k KindSearchConfig) Attribute(key string) (AttributeSearchConfig, bool) {
	for _, a := range k.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return AttributeSearchConfig{}, false
}

// MainField returns the single attribute flagged as main field.
func (k KindSearchConfig) MainField() (AttributeSearchConfig, error) {
	var main []AttributeSearchConfig
	for _, a := range k.Attributes {
		if a.MainField {
			main = append(main, a)
		}
	}
	if len(main) != 1 {
		return AttributeSearchConfig{}, fmt.Errorf("%w: kind %s has %d", ErrNoMainField, k.Kind, len(main))
	}
	return main[0], nil
}

// Validate checks the main-field invariant and weight ranges.
func (k KindSearchConfig) Validate() error {
	if len(k.Attributes) == 0 {
		return fmt.Errorf("%w: kind %s", ErrMissingSearchConfig, k.Kind)
	}
	if _, err := k.MainField(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(k.Attributes))
	for _, a := range k.Attributes {
		if seen[a.Key] {
			return fmt.Errorf("%w: duplicate attribute %q for kind %s", ErrInvalidConfig, a.Key, k.Kind)
		}
		seen[a.Key] = true
		if a.Weight < 0 || a.Weight > 1 {
			return fmt.Errorf("%w: weight of %q must be in [0,1]", ErrInvalidConfig, a.Key)
		}
	}
	return nil
}

// ValidateWeightSum checks that weights sum to 1, which the pairwise
// comparator relies on to keep similarities in [0,1].
func (k KindSearchConfig) ValidateWeightSum() error {
	var sum float64
	for _, a := range k.Attributes {
		sum += a.Weight
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: weights for kind %s sum to %.4f, want 1", ErrInvalidConfig, k.Kind, sum)
	}
	return nil
}

// AutoMapConfig holds the decision engine thresholds.
type AutoMapConfig struct {
	AcceptableThreshold float64 `toml:"acceptable_threshold" validate:"gte=0,lte=100"`
	PerfectThreshold    float64 `toml:"perfect_threshold" validate:"gte=0,lte=100,gtefield=AcceptableThreshold"`
	ConsensusSize       int     `toml:"consensus_size" validate:"gte=1"`
}

// BoostConfig holds the query boost multipliers.
type BoostConfig struct {
	Rule             float64 `toml:"rule" validate:"gte=0"`
	Ontology         float64 `toml:"ontology" validate:"gte=0"`
	Term             float64 `toml:"term" validate:"gte=0"`
	Phrase           float64 `toml:"phrase" validate:"gte=0"`
	MultiFieldTerm   float64 `toml:"multi_field_term" validate:"gte=0"`
	MultiFieldPhrase float64 `toml:"multi_field_phrase" validate:"gte=0"`
}

// OntologyFieldWeights weighs the three ontology text fields.
type OntologyFieldWeights struct {
	Label      float64 `toml:"label" validate:"gte=0"`
	Synonym    float64 `toml:"synonym" validate:"gte=0"`
	Definition float64 `toml:"definition" validate:"gte=0"`
}

// QueryConfig bounds query construction.
type QueryConfig struct {
	MaxTokens      int `toml:"max_tokens" validate:"gte=1"`
	Fuzziness      int `toml:"fuzziness" validate:"gte=0,lte=2"`
	MinFuzzyLength int `toml:"min_fuzzy_length" validate:"gte=0"`
	Limit          int `toml:"limit" validate:"gte=1"`
}

// RootTerm is a fixed crawl seed for one branch of a term type.
type RootTerm struct {
	Type   TermType `toml:"type" validate:"required"`
	Branch string   `toml:"branch"`
	IRI    string   `toml:"iri" validate:"required"`
}

// CrawlerConfig configures the ontology crawler and its HTTP client.
type CrawlerConfig struct {
	BaseURL           string     `toml:"base_url" validate:"required,url"`
	Ontology          string     `toml:"ontology" validate:"required"`
	MaxAttempts       int        `toml:"max_attempts" validate:"gte=1"`
	TimeoutSeconds    int        `toml:"timeout_seconds" validate:"gte=1"`
	RequestsPerSecond float64    `toml:"requests_per_second" validate:"gt=0"`
	PageSize          int        `toml:"page_size" validate:"gte=1"`
	Roots             []RootTerm `toml:"roots" validate:"dive"`
}

// RootsFor returns the configured roots of a term type.
func (c CrawlerConfig) RootsFor(t TermType) []RootTerm {
	var roots []RootTerm
	for _, r := range c.Roots {
		if r.Type == t {
			roots = append(roots, r)
		}
	}
	return roots
}

// StorageConfig locates on-disk state.
type StorageConfig struct {
	DataDir  string `toml:"data_dir"`
	IndexDir string `toml:"index_dir"`
}

// KafkaConfig configures the optional mapping-decision event sink.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Enabled reports whether the sink is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Config is the complete configuration surface consumed by the core.
type Config struct {
	Engine         EngineName                         `toml:"engine" validate:"oneof=indexed pairwise"`
	Attributes     map[string][]AttributeSearchConfig `toml:"attributes" validate:"required,dive,dive"`
	AutoMap        AutoMapConfig                      `toml:"automap"`
	Boosts         BoostConfig                        `toml:"boosts"`
	OntologyFields OntologyFieldWeights               `toml:"ontology_fields"`
	Query          QueryConfig                        `toml:"query"`
	Crawler        CrawlerConfig                      `toml:"crawler"`
	Storage        StorageConfig                      `toml:"storage"`
	Kafka          KafkaConfig                        `toml:"kafka"`
	Metrics        MetricsConfig                      `toml:"metrics"`
}

// SearchConfig returns the attribute table of an entity kind.
func (c *Config) SearchConfig(kind EntityKind) (KindSearchConfig, error) {
	attrs, ok := c.Attributes[string(kind)]
	if !ok || len(attrs) == 0 {
		return KindSearchConfig{}, fmt.Errorf("%w: kind %s", ErrMissingSearchConfig, kind)
	}
	return KindSearchConfig{Kind: kind, Attributes: attrs}, nil
}

// Kinds returns the configured entity kinds in sorted order.
func (c *Config) Kinds() []EntityKind {
	kinds := make([]EntityKind, 0, len(c.Attributes))
	for k := range c.Attributes {
		kinds = append(kinds, EntityKind(k))
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Validate checks the cross-field invariants struct tags cannot express.
func (c *Config) Validate() error {
	for _, kind := range c.Kinds() {
		if !kind.IsValid() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnsupportedType, kind)
		}
		kc, err := c.SearchConfig(kind)
		if err != nil {
			return err
		}
		if err := kc.Validate(); err != nil {
			return err
		}
		if c.Engine == EnginePairwise {
			if err := kc.ValidateWeightSum(); err != nil {
				return err
			}
		}
	}
	for _, r := range c.Crawler.Roots {
		if !r.Type.IsValid() {
			return fmt.Errorf("%w: root %s has type %q", ErrInvalidConfig, r.IRI, r.Type)
		}
	}
	return nil
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineIndexed,
		Attributes: map[string][]AttributeSearchConfig{
			string(KindTreatment): {
				{Key: "treatment_name", Weight: 0.7, SearchOnOntology: true, MainField: true, MultiField: true},
				{Key: "treatment_type", Weight: 0.1, MultiField: true},
				{Key: "data_source", Weight: 0.2},
			},
			string(KindDiagnosis): {
				{Key: "diagnosis", Weight: 0.5, SearchOnOntology: true, MainField: true, MultiField: true},
				{Key: "primary_site", Weight: 0.15, MultiField: true},
				{Key: "tumour_type", Weight: 0.15},
				{Key: "data_source", Weight: 0.2},
			},
		},
		AutoMap: AutoMapConfig{
			AcceptableThreshold: 75,
			PerfectThreshold:    95,
			ConsensusSize:       3,
		},
		Boosts: BoostConfig{
			Rule:             1.0,
			Ontology:         1.0,
			Term:             1.0,
			Phrase:           2.0,
			MultiFieldTerm:   0.5,
			MultiFieldPhrase: 1.0,
		},
		OntologyFields: OntologyFieldWeights{
			Label:      1.0,
			Synonym:    0.3,
			Definition: 0.05,
		},
		Query: QueryConfig{
			MaxTokens:      32,
			Fuzziness:      1,
			MinFuzzyLength: 4,
			Limit:          10,
		},
		Crawler: CrawlerConfig{
			BaseURL:           "https://www.ebi.ac.uk/ols4/api",
			Ontology:          "ncit",
			MaxAttempts:       5,
			TimeoutSeconds:    30,
			RequestsPerSecond: 5,
			PageSize:          500,
			Roots: []RootTerm{
				{Type: TermDiagnosis, Branch: "cancer", IRI: "http://purl.obolibrary.org/obo/NCIT_C9305"},
				{Type: TermTreatment, Branch: "pharmacologic substance", IRI: "http://purl.obolibrary.org/obo/NCIT_C1909"},
				{Type: TermTreatment, Branch: "therapeutic procedure", IRI: "http://purl.obolibrary.org/obo/NCIT_C49236"},
				{Type: TermTreatment, Branch: "clinical or research activity", IRI: "http://purl.obolibrary.org/obo/NCIT_C15206"},
				{Type: TermRegimen, Branch: "chemotherapy regimen", IRI: "http://purl.obolibrary.org/obo/NCIT_C12218"},
				{Type: TermRegimen, Branch: "regimen or agent combination", IRI: "http://purl.obolibrary.org/obo/NCIT_C91103"},
			},
		},
	}
}
