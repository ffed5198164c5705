package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownToken replaces empty and sentinel attribute values so that two
// unknown values match weakly instead of not at all.
const UnknownToken = "unknownvalue"

// unknownSentinels are attribute values providers use for missing data.
var unknownSentinels = map[string]bool{
	"":              true,
	"not provided":  true,
	"not collected": true,
}

// Analyzer folds and tokenises attribute values. Indexed text and query
// tokens go through the same Analyzer so they compare equal.
type Analyzer struct {
	maxTokens int
}

// NewAnalyzer creates an analyzer that keeps at most maxTokens tokens per
// value. A non-positive limit disables truncation.
func NewAnalyzer(maxTokens int) *Analyzer {
	return &Analyzer{maxTokens: maxTokens}
}

// Fold lower-cases s and strips diacritics.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// IsUnknown reports whether a value is empty or a missing-data sentinel.
func IsUnknown(v string) bool {
	return unknownSentinels[strings.Join(strings.Fields(Fold(v)), " ")]
}

// Tokens returns the folded tokens of a value, truncated to the prefix of
// at most maxTokens tokens. Unknown values yield the single UnknownToken.
func (a *Analyzer) Tokens(v string) []string {
	if IsUnknown(v) {
		return []string{UnknownToken}
	}
	tokens := strings.FieldsFunc(Fold(v), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return []string{UnknownToken}
	}
	if a.maxTokens > 0 && len(tokens) > a.maxTokens {
		tokens = tokens[:a.maxTokens]
	}
	return tokens
}

// Text returns the tokens of a value joined by single spaces. This is the
// form stored in text fields of the index.
func (a *Analyzer) Text(v string) string {
	return strings.Join(a.Tokens(v), " ")
}

// Distinct returns tokens with duplicates removed, first occurrence kept.
func Distinct(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
