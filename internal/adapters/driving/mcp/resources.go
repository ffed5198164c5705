package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for ontomap resources.
	uriScheme = "ontomap://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the whole frontier.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "frontier",
		Name:        "frontier",
		Description: "Pending ontology crawl entries",
		MIMEType:    "application/json",
	}, s.handleFrontierResource)

	// Template for the frontier of one term type.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "frontier/{type}",
		Name:        "frontier-by-type",
		Description: "Pending ontology crawl entries of one term type",
		MIMEType:    "application/json",
	}, s.handleFrontierResource)
}

// handleFrontierResource lists pending crawl entries, filtered by type when
// the URI names one.
func (s *Server) handleFrontierResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ontology == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	var filter domain.TermType
	if raw := extractTermType(req.Params.URI); raw != "" {
		t, err := domain.ParseTermType(raw)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		filter = t
	}

	entries, err := s.ports.Ontology.Frontier(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing frontier: %w", err)
	}

	selected := make([]domain.UnprocessedOntologyURL, 0, len(entries))
	for _, e := range entries {
		if filter == "" || e.Type == filter {
			selected = append(selected, e)
		}
	}

	data, err := json.MarshalIndent(selected, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling frontier: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTermType extracts the type from a URI like ontomap://frontier/{type}.
func extractTermType(uri string) string {
	const prefix = uriScheme + "frontier/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
