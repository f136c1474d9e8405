package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseEventDateKeepsAbsoluteInstant(t *testing.T) {
	loc := LoadLocation("America/Chicago", "")
	inputs := []string{
		"2025-03-01T14:00:00Z",
		"2025-03-01T08:00:00-06:00",
		"2025-03-01T15:00:00+01:00",
	}

	want := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	for _, in := range inputs {
		got, allDay, err := ParseEventDate(in, loc)
		require.NoError(t, err, in)
		require.False(t, allDay)
		require.True(t, want.Equal(got), "%s parsed to %s", in, got)
		require.Equal(t, time.UTC, got.Location())
	}
}

func TestParseEventDateLocalWallTimeFollowsDST(t *testing.T) {
	loc := LoadLocation("America/Chicago", "")

	winter, _, err := ParseEventDate("2025-01-15T09:00", loc)
	require.NoError(t, err)
	require.Equal(t, 15, winter.Hour())

	summer, _, err := ParseEventDate("2025-07-15T09:00", loc)
	require.NoError(t, err)
	require.Equal(t, 14, summer.Hour())
}

func TestParseEventDateDateOnly(t *testing.T) {
	got, allDay, err := ParseEventDate("2025-03-01", time.UTC)
	require.NoError(t, err)
	require.True(t, allDay)
	require.Equal(t, "2025-03-01", FormatDate(got))
}

func TestParseEventDateInvalid(t *testing.T) {
	_, _, err := ParseEventDate("next tuesday", time.UTC)
	require.ErrorIs(t, err, ErrInvalidDate)

	_, _, err = ParseEventDate("  ", time.UTC)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestLoadLocationFallback(t *testing.T) {
	require.Equal(t, "America/Chicago", LoadLocation("Not/AZone", "America/Chicago").String())
	require.Equal(t, time.UTC, LoadLocation("", ""))
}
