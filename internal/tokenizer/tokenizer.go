// Package tokenizer turns visible page text into normalized word tokens.
//
// A token is a maximal run of word characters (letters, numbers, underscore)
// that, after lower-casing, consists only of ASCII letters and digits. Runs
// containing non-ASCII letters or underscores are dropped whole rather than
// split, so "café" and "snake_case" yield no tokens.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenize returns the word tokens of text in document order.
// It runs in O(n) over the characters of text.
func Tokenize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	lowered := cases.Lower(language.Und).String(text)
	runs := strings.FieldsFunc(lowered, func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := make([]string, 0, len(runs))
	for _, run := range runs {
		if isASCIIAlnum(run) {
			tokens = append(tokens, run)
		}
	}
	return tokens
}

// ComputeWordFrequencies counts how often each token occurs.
func ComputeWordFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}
	return freq
}

// TokenSet is the set view of a token sequence used for similarity checks.
type TokenSet map[string]struct{}

// NewTokenSet builds the set of distinct tokens.
func NewTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// Contains reports whether token is in the set.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Len returns the number of distinct tokens.
func (s TokenSet) Len() int {
	return len(s)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isASCIIAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return s != ""
}
