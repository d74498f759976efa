package rank

import (
	"strings"
	"unicode"
)

// Title matches count more than body matches when scoring lexical overlap.
const (
	titleCredit = 1.0
	textCredit  = 0.5
)

// LexicalScore computes the term-overlap score between a query and a
// document's title+text in [0,1]. Each query token earns full credit for a
// title match, partial credit for a body match; the score is the mean credit
// over query tokens. Pure and deterministic.
func LexicalScore(query, title, text string) float64 {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	titleSet := tokenSet(Tokenize(title))
	textSet := tokenSet(Tokenize(text))

	var total float64
	for _, tok := range queryTokens {
		if _, ok := titleSet[tok]; ok {
			total += titleCredit
			continue
		}
		if _, ok := textSet[tok]; ok {
			total += textCredit
		}
	}

	return total / float64(len(queryTokens))
}

// Tokenize lower-cases and splits on non-alphanumeric runes, dropping tokens
// shorter than 2 runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
