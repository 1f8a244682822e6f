package concepts

import (
	"regexp"
	"unicode/utf8"
)

const maxConcepts = 100

// Tokens are maximal runs of word characters; everything else (punctuation,
// whitespace, symbols) separates tokens. Letters cover the CJK ideograph
// range, so Chinese course text tokenizes without a segmenter.
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// FrequencyExtractor is the reference concept pipeline: rule-based
// tokenization with frequency and length filters, and positional adjacency
// for relations. It is a stand-in for a real NER/RE engine behind the same
// contract.
type FrequencyExtractor struct{}

func NewFrequencyExtractor() *FrequencyExtractor { return &FrequencyExtractor{} }

// Extract keeps tokens of length >= 2 that occur at least twice, in
// first-seen order, capped at 100 concepts. Relations pair each surviving
// concept with its successor in the filtered list, not its neighbor in the
// source text.
func (e *FrequencyExtractor) Extract(text string) ([]string, []Relation) {
	if text == "" {
		return []string{}, []Relation{}
	}

	tokens := tokenRe.FindAllString(text, -1)
	freq := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}

	entities := make([]string, 0, len(order))
	for _, tok := range order {
		if freq[tok] < 2 {
			continue
		}
		entities = append(entities, tok)
		if len(entities) == maxConcepts {
			break
		}
	}

	relations := make([]Relation, 0)
	for i := 0; i+1 < len(entities); i++ {
		relations = append(relations, Relation{Source: entities[i], Target: entities[i+1]})
	}
	return entities, relations
}
