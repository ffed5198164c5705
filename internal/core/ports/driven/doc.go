// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - IndexWriter: Single-writer append/delete/commit over the inverted index (bleve)
//   - IndexReader: Read-only query execution against the index
//   - CalibrationIndex: Short-lived storage of calibration documents
//   - RuleStore: Curated record persistence (previously mapped rules)
//   - OntologyTermStore: Crawled ontology term persistence
//   - FrontierStore: Crawl frontier persistence
//   - OntologyAPI: Remote term hierarchy service
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Metrics: Operational counters. Without it, nothing is recorded.
//   - MappingEventSink: Receives automatic mapping decisions. Without it, decisions are only stored.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
