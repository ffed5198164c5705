package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// AttributeInput is one attribute key/value pair.
type AttributeInput struct {
	Key   string `json:"key" jsonschema:"attribute key, e.g. treatment_name"`
	Value string `json:"value" jsonschema:"attribute value as supplied by the provider"`
}

// SuggestInput is the input schema for the suggest tool.
type SuggestInput struct {
	ID         string           `json:"id,omitempty" jsonschema:"provider identifier of the record"`
	Kind       string           `json:"kind" jsonschema:"entity kind: treatment or diagnosis"`
	Attributes []AttributeInput `json:"attributes" jsonschema:"ordered attribute key/value pairs"`
	Limit      int              `json:"limit,omitempty" jsonschema:"maximum number of suggestions to return"`
}

// SuggestOutput is the output schema for the suggest tool.
type SuggestOutput struct {
	Suggestions []SuggestionOutput `json:"suggestions"`
	Count       int                `json:"count"`
}

// SuggestionOutput represents a single suggestion.
type SuggestionOutput struct {
	TermURL       string  `json:"term_url"`
	TermLabel     string  `json:"term_label"`
	SourceKind    string  `json:"source_kind"`
	DocumentID    string  `json:"document_id"`
	RelativeScore float64 `json:"relative_score"`
}

// DecideInput is the input schema for the decide tool.
type DecideInput struct {
	ID         string           `json:"id,omitempty" jsonschema:"provider identifier of the record"`
	Kind       string           `json:"kind" jsonschema:"entity kind: treatment or diagnosis"`
	Attributes []AttributeInput `json:"attributes" jsonschema:"ordered attribute key/value pairs"`
	Commit     bool             `json:"commit,omitempty" jsonschema:"store an accepted mapping as a rule"`
}

// DecideOutput is the output schema for the decide tool.
type DecideOutput struct {
	Outcome    string            `json:"outcome"`
	Accepted   bool              `json:"accepted"`
	Considered int               `json:"considered"`
	Committed  bool              `json:"committed"`
	Suggestion *SuggestionOutput `json:"suggestion,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest",
		Description: "Rank ontology mapping suggestions for a treatment or diagnosis record",
	}, s.handleSuggest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "decide",
		Description: "Apply the automatic mapping policy to a record and optionally commit the mapping",
	}, s.handleDecide)
}

// handleSuggest handles the suggest tool invocation.
func (s *Server) handleSuggest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SuggestInput,
) (*mcp.CallToolResult, SuggestOutput, error) {
	record, err := toRecord(input.ID, input.Kind, input.Attributes)
	if err != nil {
		return nil, SuggestOutput{}, err
	}

	suggestions, err := s.ports.Engine.Suggest(ctx, record)
	if err != nil {
		return nil, SuggestOutput{}, err
	}
	if input.Limit > 0 && len(suggestions) > input.Limit {
		suggestions = suggestions[:input.Limit]
	}

	output := SuggestOutput{
		Suggestions: make([]SuggestionOutput, len(suggestions)),
		Count:       len(suggestions),
	}
	for i := range suggestions {
		output.Suggestions[i] = toSuggestionOutput(suggestions[i])
	}
	return nil, output, nil
}

// handleDecide handles the decide tool invocation. Without commit it only
// reports what the policy would do.
func (s *Server) handleDecide(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DecideInput,
) (*mcp.CallToolResult, DecideOutput, error) {
	record, err := toRecord(input.ID, input.Kind, input.Attributes)
	if err != nil {
		return nil, DecideOutput{}, err
	}

	var decision domain.Decision
	if input.Commit {
		result, err := s.ports.AutoMap.Map(ctx, record)
		if err != nil {
			return nil, DecideOutput{}, err
		}
		decision = result.Decision
	} else {
		suggestions, err := s.ports.Engine.Suggest(ctx, record)
		if err != nil {
			return nil, DecideOutput{}, err
		}
		decision = s.ports.AutoMap.Decide(suggestions)
	}

	output := DecideOutput{
		Outcome:    string(decision.Outcome),
		Accepted:   decision.Accepted(),
		Considered: decision.Considered,
		Committed:  input.Commit && decision.Accepted(),
	}
	if decision.Suggestion != nil {
		out := toSuggestionOutput(*decision.Suggestion)
		output.Suggestion = &out
	}
	return nil, output, nil
}

func toRecord(id, kind string, attrs []AttributeInput) (domain.SourceRecord, error) {
	k, err := domain.ParseEntityKind(kind)
	if err != nil {
		return domain.SourceRecord{}, fmt.Errorf("%w: %q", err, kind)
	}
	if len(attrs) == 0 {
		return domain.SourceRecord{}, fmt.Errorf("%w: attributes are required", domain.ErrInvalidInput)
	}
	if id == "" {
		id = "mcp"
	}
	out := make([]domain.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = domain.Attribute{Key: a.Key, Value: a.Value}
	}
	return domain.NewSourceRecord(id, k, out...), nil
}

func toSuggestionOutput(s domain.Suggestion) SuggestionOutput {
	return SuggestionOutput{
		TermURL:       s.TermURL,
		TermLabel:     s.TermLabel,
		SourceKind:    string(s.SourceKind),
		DocumentID:    s.DocumentID,
		RelativeScore: s.RelativeScore,
	}
}
