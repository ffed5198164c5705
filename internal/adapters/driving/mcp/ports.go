package mcp

import (
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Engine ranks suggestions.
	Engine driving.SuggestionEngine

	// AutoMap applies the decision policy.
	AutoMap driving.AutoMapService

	// Ontology exposes the crawl frontier. Optional.
	Ontology driving.OntologyLoader
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Engine == nil {
		return ErrMissingEngine
	}
	if p.AutoMap == nil {
		return ErrMissingAutoMap
	}
	return nil
}
