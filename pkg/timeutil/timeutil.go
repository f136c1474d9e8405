// Package timeutil normalizes user supplied event dates to UTC using IANA zones.
package timeutil

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// localLayouts carry no offset and are interpreted in the caller's zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadLocation resolves an IANA zone name, falling back to fallback and then UTC.
func LoadLocation(name, fallback string) *time.Location {
	for _, candidate := range []string{name, fallback} {
		if candidate == "" {
			continue
		}
		if loc, err := time.LoadLocation(candidate); err == nil {
			return loc
		}
	}
	return time.UTC
}

// ParseEventDate parses raw into a UTC instant. Inputs with an explicit offset keep
// their absolute instant. Offset-less inputs are read as wall time in loc, so DST is
// applied for the date in question. Date-only inputs report allDay and are stored as
// midnight UTC of that calendar date.
func ParseEventDate(raw string, loc *time.Location) (t time.Time, allDay bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, ErrInvalidDate
	}
	if loc == nil {
		loc = time.UTC
	}

	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed.UTC(), false, nil
	}

	if parsed, err := time.Parse(DateLayout, raw); err == nil {
		return parsed.UTC(), true, nil
	}

	for _, layout := range localLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed.UTC(), false, nil
		}
	}

	return time.Time{}, false, ErrInvalidDate
}

// FormatDate renders the calendar date of t in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
