// Package ols is a client for an Ontology Lookup Service (OLS) style term
// hierarchy API. It implements driven.OntologyAPI: term detail lookups by
// IRI and paginated child listings, paced by a token-bucket limiter.
package ols
