// Package fuzzy ranks board cards against a typed search query with some
// tolerance for typos.
package fuzzy

import (
	"strings"
)

// Fields are the searchable parts of a card, highest weight first.
type Fields struct {
	Title       string
	Project     string
	Description string
}

// LevenshteinDistance counts single-rune edits between a and b after case folding.
func LevenshteinDistance(a, b string) int {
	r1 := []rune(normalize(a))
	r2 := []rune(normalize(b))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

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

// Threshold is the edit budget for a query of this length.
func Threshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// Match reports whether query appears in text, is a prefix of one of its words,
// or is within threshold edits of one.
func Match(query, text string, threshold int) bool {
	query, text = normalize(query), normalize(text)
	if query == "" {
		return true
	}
	if strings.Contains(text, query) {
		return true
	}
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) || LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}
	return false
}

// MatchFields reports whether any field matches query.
func MatchFields(query string, f Fields) bool {
	t := Threshold(query)
	return Match(query, f.Title, t) || Match(query, f.Project, t) || Match(query, f.Description, t)
}

// Score ranks f against query; higher is better and zero means no signal.
func Score(query string, f Fields) float64 {
	query = normalize(query)
	if query == "" {
		return 0
	}
	return fieldScore(query, f.Title, 100, 50) +
		fieldScore(query, f.Project, 60, 20) +
		fieldScore(query, f.Description, 30, 10)
}

func fieldScore(query, text string, containsWeight, wordBonus float64) float64 {
	text = normalize(text)
	if text == "" {
		return 0
	}
	if strings.Contains(text, query) {
		if containsWord(text, query) {
			return containsWeight + wordBonus
		}
		return containsWeight
	}

	best := 0.0
	for _, word := range strings.Fields(text) {
		s := 0.0
		if strings.HasPrefix(word, query) {
			s = containsWeight * 0.4
		}
		if d := LevenshteinDistance(query, word); d <= 2 {
			s = max(s, containsWeight*0.5-float64(d)*containsWeight*0.15)
		}
		best = max(best, s)
	}
	return best
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
