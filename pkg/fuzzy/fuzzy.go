// Package fuzzy provides typo tolerant text matching for search boxes.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance calculates the edit distance between two strings after
// normalizing case, whitespace and accents.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(Normalize(s1))
	r2 := []rune(Normalize(s2))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rows are enough
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// Threshold is the edit distance tolerated for a query of this length.
func Threshold(query string) int {
	n := len([]rune(Normalize(query)))
	switch {
	case n <= 3:
		return 0
	case n < 8:
		return 1
	default:
		return 2
	}
}

// Match reports whether query matches text exactly as a substring, as a word
// prefix, or within Threshold edits of one of its words.
func Match(query, text string) bool {
	query = Normalize(query)
	text = Normalize(text)
	if query == "" {
		return true
	}
	if strings.Contains(text, query) {
		return true
	}

	threshold := Threshold(query)
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) {
			return true
		}
		if threshold > 0 && LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}
	return false
}

// MatchAny reports whether query matches any of the given fields.
func MatchAny(query string, fields ...string) bool {
	for _, f := range fields {
		if Match(query, f) {
			return true
		}
	}
	return false
}

// Normalize lowercases s, strips diacritics and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.ReplaceAll(strings.ToLower(s), "đ", "d")
	return strings.Join(strings.Fields(s), " ")
}
