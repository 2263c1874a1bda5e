// Package textproc turns raw Spanish free text into fixed-length integer
// sequences: cleaning, vocabulary fitting and padding.
package textproc

import (
	_ "embed"
	"strings"
	"unicode"
)

//go:embed stopwords_es.txt
var stopwordsFile string

var stopwords = loadStopwords(stopwordsFile)

func loadStopwords(list string) map[string]struct{} {
	words := strings.Fields(list)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether word is in the Spanish stopword set.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

func isAllowed(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	switch r {
	case 'á', 'é', 'í', 'ó', 'ú', 'ñ', 'ü':
		return true
	}
	return false
}

// isSpace extends unicode.IsSpace with the ASCII information separators
// U+001C..U+001F, which also split words.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Normalize lower-cases raw, drops every rune outside the Spanish lowercase
// alphabet and whitespace, removes stopwords and joins the surviving words
// with single spaces. The result is never longer than the input and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case isAllowed(r):
			b.WriteRune(r)
		case isSpace(r):
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if !IsStopword(w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
