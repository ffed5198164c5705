package domain

import "time"

// Suggestion is a ranked candidate mapping for a source record.
type Suggestion struct {
	// SourceKind is the kind of document matched (rule or ontology).
	SourceKind SourceKind `json:"source_kind"`

	// DocumentID is the id of the matched index document.
	DocumentID string `json:"document_id"`

	// TermURL and TermLabel identify the suggested ontology term.
	TermURL   string `json:"term_url"`
	TermLabel string `json:"term_label"`

	// Score is the raw engine score.
	Score float64 `json:"score"`

	// RelativeScore is the score rescaled against the calibration maximum.
	// Values above 100 are possible and preserved.
	RelativeScore float64 `json:"relative_score"`

	// Rule is set when the suggestion comes from a previously mapped rule.
	Rule *Rule `json:"rule,omitempty"`

	// Term is set when the suggestion comes from an ontology term.
	Term *OntologyTerm `json:"term,omitempty"`
}

// DecisionOutcome classifies the result of the automatic mapping policy.
type DecisionOutcome string

const (
	// OutcomeNoDecision means the record needs human review.
	OutcomeNoDecision DecisionOutcome = "no_decision"

	// OutcomePerfect means a single suggestion reached the perfect threshold.
	OutcomePerfect DecisionOutcome = "perfect"

	// OutcomeConsensus means the top acceptable suggestions agree on one URL.
	OutcomeConsensus DecisionOutcome = "consensus"
)

// Decision is the output of the automatic mapping decision engine.
type Decision struct {
	Outcome    DecisionOutcome `json:"outcome"`
	Suggestion *Suggestion     `json:"suggestion,omitempty"`

	// Considered is the number of suggestions at or above the acceptable threshold.
	Considered int `json:"considered"`
}

// Accepted reports whether a suggestion was selected.
func (d Decision) Accepted() bool {
	return d.Outcome != OutcomeNoDecision && d.Suggestion != nil
}

// NoDecision returns the "needs human review" decision.
func NoDecision(considered int) Decision {
	return Decision{Outcome: OutcomeNoDecision, Considered: considered}
}

// MappingEvent is published when a mapping is committed automatically.
type MappingEvent struct {
	RecordKey     string          `json:"record_key"`
	RecordID      string          `json:"record_id"`
	Kind          EntityKind      `json:"kind"`
	Outcome       DecisionOutcome `json:"outcome"`
	TermURL       string          `json:"term_url"`
	TermLabel     string          `json:"term_label"`
	SourceKind    SourceKind      `json:"source_kind"`
	RelativeScore float64         `json:"relative_score"`
	DecidedAt     time.Time       `json:"decided_at"`
}

// AutoMapResult summarises one automatic mapping attempt.
type AutoMapResult struct {
	Record      SourceRecord `json:"record"`
	Decision    Decision     `json:"decision"`
	Suggestions []Suggestion `json:"suggestions"`
}

// AutoMapSummary aggregates a batch run.
type AutoMapSummary struct {
	Total     int `json:"total"`
	Perfect   int `json:"perfect"`
	Consensus int `json:"consensus"`
	Review    int `json:"review"`
	Failed    int `json:"failed"`
}

// Mapped returns the number of records committed automatically.
func (s AutoMapSummary) Mapped() int {
	return s.Perfect + s.Consensus
}
