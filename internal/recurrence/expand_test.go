package recurrence

import (
	"testing"
	"time"

	"cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/timeutil"

	"github.com/stretchr/testify/require"
)

func TestInstanceIDRoundTrip(t *testing.T) {
	id := InstanceID("abc-123", *at("2025-03-10T09:00:00Z"))
	require.Equal(t, "abc-123_instance_2025-03-10", id)
	require.True(t, IsInstanceID(id))
	require.Equal(t, "abc-123", ResolveID(id))
	require.Equal(t, "abc-123", ResolveID("abc-123"))
	require.False(t, IsInstanceID("abc-123"))
}

func TestExpandMixesOriginalsAndInstances(t *testing.T) {
	weekly := &domain.Task{ID: "w", Title: "standup", EventDate: at("2025-03-03T09:00:00Z"), RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO"}
	oneOff := &domain.Task{ID: "o", Title: "dentist", EventDate: at("2025-03-12T16:00:00Z")}
	undated := &domain.Task{ID: "u", Title: "someday"}
	outside := &domain.Task{ID: "x", Title: "later", EventDate: at("2025-05-01T00:00:00Z")}

	got := Expand([]*domain.Task{weekly, oneOff, undated, outside}, *at("2025-03-01T00:00:00Z"), *at("2025-03-31T00:00:00Z"), time.UTC)

	ids := make([]string, 0, len(got))
	for _, occ := range got {
		ids = append(ids, occ.ID)
	}
	require.Equal(t, []string{
		"w",
		"w_instance_2025-03-10",
		"o",
		"w_instance_2025-03-17",
		"w_instance_2025-03-24",
	}, ids)

	require.False(t, got[0].IsInstance)
	require.True(t, got[1].IsInstance)
	require.Equal(t, "w", got[1].OriginalID)
	require.Equal(t, *at("2025-03-10T09:00:00Z"), *got[1].EventDate)

	// the source task is left untouched
	require.Equal(t, *at("2025-03-03T09:00:00Z"), *weekly.EventDate)
}

func TestExpandAnchorBeforeWindowYieldsOnlyInstances(t *testing.T) {
	daily := &domain.Task{ID: "d", EventDate: at("2025-01-01T07:00:00Z"), RecurrenceRule: "FREQ=DAILY"}

	got := Expand([]*domain.Task{daily}, *at("2025-02-01T00:00:00Z"), *at("2025-02-03T00:00:00Z"), time.UTC)
	require.Len(t, got, 2)
	for _, occ := range got {
		require.True(t, occ.IsInstance)
	}
}

func TestExpandAllDayWeeklyInChicago(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	date, allDay, err := timeutil.ParseEventDate("2025-03-03", chicago)
	require.NoError(t, err)
	require.True(t, allDay)

	weekly := &domain.Task{ID: "w", EventDate: &date, AllDay: true, RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO"}

	got := Expand([]*domain.Task{weekly}, date, date.AddDate(0, 0, 28), chicago)
	require.Len(t, got, 4)
	require.Equal(t, "w", got[0].ID)
	require.False(t, got[0].IsInstance)
	for i, occ := range got {
		require.Equal(t, time.Monday, occ.EventDate.Weekday())
		require.Equal(t, date.AddDate(0, 0, 7*i), *occ.EventDate)
	}
	require.Equal(t, "w_instance_2025-03-24", got[3].ID)
}
