package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevenshteinDistance(t *testing.T) {
	require.Equal(t, 0, LevenshteinDistance("Invoice", "invoice"))
	require.Equal(t, 1, LevenshteinDistance("invoce", "invoice"))
	require.Equal(t, 3, LevenshteinDistance("", "abc"))
	require.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
}

func TestMatchToleratesTypos(t *testing.T) {
	require.True(t, Match("clent", "Call client about renewal", Threshold("clent")))
	require.True(t, Match("ren", "Call client about renewal", Threshold("ren")))
	require.False(t, Match("dentist", "Call client about renewal", Threshold("dentist")))
	require.True(t, Match("", "anything", 1))
}

func TestScoreRanksTitleAboveDescription(t *testing.T) {
	inTitle := Fields{Title: "Send invoice", Description: "for march"}
	inDescription := Fields{Title: "Accounting", Description: "send the invoice"}
	unrelated := Fields{Title: "Groceries"}

	require.Greater(t, Score("invoice", inTitle), Score("invoice", inDescription))
	require.Greater(t, Score("invoice", inDescription), 0.0)
	require.Equal(t, 0.0, Score("invoice", unrelated))
}

func TestMatchFieldsChecksProject(t *testing.T) {
	require.True(t, MatchFields("acme", Fields{Title: "Kickoff", Project: "ACME Corp"}))
	require.False(t, MatchFields("acme", Fields{Title: "Kickoff", Project: "Globex"}))
}
