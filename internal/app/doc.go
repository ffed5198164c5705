// Package app is the composition root: it loads configuration and wires
// the driven adapters into the core services the CLI and MCP server call.
package app
