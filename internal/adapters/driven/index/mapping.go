package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// tokensAnalyzer splits pre-analysed text on whitespace. Documents and
// queries are folded by the core analyzer before they reach the index, so
// the index must not stem or drop tokens.
const tokensAnalyzer = "ontomap_tokens"

// buildIndexMapping creates the bleve mapping for a schema.
//
// Keyword fields are matched verbatim; text and multi-value fields keep
// term vectors for phrase matching. Fields not in the schema (attributes
// added to the configuration after the index was created) fall back to the
// dynamic mapping with the same analyzer.
func buildIndexMapping(schema domain.Schema) mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	// Registration only fails for duplicate names on a fresh mapping.
	_ = indexMapping.AddCustomAnalyzer(tokensAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []string{lowercase.Name},
	})
	indexMapping.DefaultAnalyzer = tokensAnalyzer
	indexMapping.IndexDynamic = true
	indexMapping.StoreDynamic = false

	docMapping := bleve.NewDocumentMapping()
	for _, key := range schema.Keys() {
		kind, _ := schema.Kind(key)
		field := bleve.NewTextFieldMapping()
		switch kind {
		case domain.FieldKeyword:
			field.Analyzer = keyword.Name
			field.Store = key == domain.FieldSourceKind
			field.IncludeTermVectors = false
		default:
			field.Analyzer = tokensAnalyzer
			field.Store = false
			field.IncludeTermVectors = true
		}
		docMapping.AddFieldMappingsAt(key.Name(), field)
	}
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// documentData flattens a document into the map bleve indexes.
func documentData(doc domain.IndexedDocument, schema domain.Schema) map[string]interface{} {
	data := make(map[string]interface{})
	for _, f := range doc.Fields() {
		kind, _ := schema.Kind(f.Key)
		if kind == domain.FieldMultiValue || len(f.Values) > 1 {
			data[f.Key.Name()] = f.Values
			continue
		}
		data[f.Key.Name()] = f.Values[0]
	}
	return data
}
