package services

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// SimilarityFunc scores two strings between 0.0 (no similarity) and 1.0
// (identical).
type SimilarityFunc func(a, b string) float64

// LevenshteinSimilarity returns 1 - distance/maxLen over runes.
func LevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// ExactSimilarity returns 1.0 for equal strings, 0.0 otherwise.
func ExactSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}

// WeightedComparator combines per-attribute similarities by attribute
// weight. With weights summing to 1 the result stays in [0,1].
type WeightedComparator struct {
	similarity SimilarityFunc
	analyzer   *Analyzer
}

// NewWeightedComparator creates a comparator. A nil similarity defaults to
// LevenshteinSimilarity.
func NewWeightedComparator(similarity SimilarityFunc, analyzer *Analyzer) *WeightedComparator {
	if similarity == nil {
		similarity = LevenshteinSimilarity
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(0)
	}
	return &WeightedComparator{similarity: similarity, analyzer: analyzer}
}

// Compare scores record b against record a over the configured attributes.
// Values are compared in analysed form; a missing value counts as unknown.
func (c *WeightedComparator) Compare(cfg domain.KindSearchConfig, a, b domain.SourceRecord) float64 {
	var score float64
	for _, attr := range cfg.Attributes {
		if attr.Weight <= 0 {
			continue
		}
		av, _ := a.Value(attr.Key)
		bv, _ := b.Value(attr.Key)
		score += attr.Weight * c.similarity(c.analyzer.Text(av), c.analyzer.Text(bv))
	}
	return score
}
