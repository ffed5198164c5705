// Package domain defines the core business entities for ontomap.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceRecord: A provider-supplied clinical attribute set (treatment or diagnosis)
//   - Rule: A previously curated SourceRecord with a committed ontology mapping
//   - OntologyTerm: A canonical term crawled from a remote hierarchy service
//   - IndexedDocument: The unit stored in the inverted index
//   - Query: The engine-neutral description of a suggestion search
//   - Suggestion: A ranked, relative-scored match candidate
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
