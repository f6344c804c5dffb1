package ranker

import (
	"strings"
	"unicode"
)

// TokenOverlap is the placeholder semantic scorer: normalized intersection
// over union of lowercase token sets. It stands in for a real cross-encoder
// behind the SemanticScorer interface.
type TokenOverlap struct{}

var _ SemanticScorer = TokenOverlap{}

// Score returns the Jaccard similarity of the query and text vocabularies.
func (TokenOverlap) Score(query, text string) float64 {
	q := tokenSet(query)
	d := tokenSet(text)
	if len(q) == 0 || len(d) == 0 {
		return 0
	}

	intersection := 0
	for tok := range q {
		if _, ok := d[tok]; ok {
			intersection++
		}
	}
	union := len(q) + len(d) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
