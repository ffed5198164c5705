// Package mcp provides an MCP (Model Context Protocol) server adapter for
// ontomap. It lets AI assistants request mapping suggestions and decisions.
package mcp

import "errors"

var (
	// ErrMissingEngine is returned when the suggestion engine is not provided.
	ErrMissingEngine = errors.New("mcp: suggestion engine is required")

	// ErrMissingAutoMap is returned when the automatic mapping service is not provided.
	ErrMissingAutoMap = errors.New("mcp: automatic mapping service is required")
)
