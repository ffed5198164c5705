// Package services implements the driving port interfaces.
// Services contain the mapping logic and orchestrate calls to
// driven ports (adapters).
//
//   - Similarity: token analysis and weighted record comparison
//   - DocumentMapper: records and ontology terms to index documents
//   - QueryBuilder: weighted disjunctive queries from a record
//   - RelativeScoreNormalizer: scores relative to a calibration document
//   - Suggestion engines: indexed search and the pairwise fallback
//   - AutoMapService: the perfect/consensus decision policy
//   - OntologyLoaderService: the resumable ontology crawler
package services
