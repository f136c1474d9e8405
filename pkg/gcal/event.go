package gcal

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// Event is the subset of a calendar event the board reads and writes.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	TimeZone    string    `json:"time_zone,omitempty"`
	ColorID     string    `json:"color_id,omitempty"`
	Recurrence  []string  `json:"recurrence,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
	Status      string    `json:"status,omitempty"`
}

func toCalendarEvent(ev Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		ColorId:     ev.ColorID,
		Recurrence:  ev.Recurrence,
	}

	// A patch merges start/end, so the unused form is nulled explicitly.
	if ev.AllDay {
		out.Start = &calendar.EventDateTime{Date: ev.Start.UTC().Format(dateLayout), NullFields: []string{"DateTime"}}
		out.End = &calendar.EventDateTime{Date: ev.End.UTC().Format(dateLayout), NullFields: []string{"DateTime"}}
	} else {
		out.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone, NullFields: []string{"Date"}}
		out.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone, NullFields: []string{"Date"}}
	}

	if ev.TaskID != "" {
		out.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{
				PropTaskID: ev.TaskID,
				PropSource: SourceName,
			},
		}
	}
	return out
}

// FromCalendarEvent reads an API event. Date-only starts become all-day events at
// midnight UTC.
func FromCalendarEvent(item *calendar.Event) (Event, error) {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		ColorID:     item.ColorId,
		Recurrence:  item.Recurrence,
		HTMLLink:    item.HtmlLink,
		Status:      item.Status,
	}
	if item.ExtendedProperties != nil {
		ev.TaskID = item.ExtendedProperties.Private[PropTaskID]
	}

	start, allDay, err := parseEventDateTime(item.Start)
	if err != nil {
		return Event{}, fmt.Errorf("start: %w", err)
	}
	ev.Start, ev.AllDay = start, allDay
	if item.Start != nil {
		ev.TimeZone = item.Start.TimeZone
	}

	if item.End != nil {
		if end, _, err := parseEventDateTime(item.End); err == nil {
			ev.End = end
		}
	}
	return ev, nil
}

func parseEventDateTime(dt *calendar.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, fmt.Errorf("missing date")
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.UTC(), false, nil
	}
	if dt.Date != "" {
		t, err := time.Parse(dateLayout, dt.Date)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("missing date")
}
