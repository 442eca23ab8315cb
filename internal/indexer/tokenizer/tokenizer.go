// Package tokenizer provides text tokenisation for the keyword index. It
// lower-cases input, splits on non-alphanumeric boundaries, and drops
// single-character tokens. Deliberately no stemming and no stop-word list:
// ranking is a plain term-frequency sum and both would change recall in
// ways the product does not want.
package tokenizer

import (
	"strings"
	"unicode"
)

const minTokenLen = 2

// Tokenize breaks text into a slice of normalised terms. Equal terms
// normalise identically regardless of casing and surrounding punctuation.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) < minTokenLen {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// Counts tokenizes text and returns per-term occurrence counts.
func Counts(text string) map[string]int {
	terms := Tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return counts
}

// Unique tokenizes text and returns the distinct terms, preserving first
// appearance order. Repeated query words must not inflate their own weight.
func Unique(text string) []string {
	terms := Tokenize(text)
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}
	return unique
}
