// Package recurrence expands RFC 5545 recurrence rules attached to tasks into
// concrete occurrence dates. Nothing here touches storage.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"cyra-kanban/internal/task/domain"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

// Rule is the recurrence input of a single task.
type Rule struct {
	RRule    string
	Anchor   *time.Time
	EndDate  *time.Time
	Count    *int
	Location *time.Location // zone the rule is evaluated in; UTC when nil
	AllDay   bool           // anchor is a calendar date stored as midnight UTC
}

// FromTask builds the rule of t evaluated in loc.
func FromTask(t *domain.Task, loc *time.Location) Rule {
	return Rule{
		RRule:    t.RecurrenceRule,
		Anchor:   t.EventDate,
		EndDate:  t.RecurrenceEndDate,
		Count:    t.RecurrenceCount,
		Location: loc,
		AllDay:   t.AllDay,
	}
}

// Normalize strips an RRULE: prefix and adds FREQ=DAILY when no frequency is given.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "RRULE:")
	s = strings.Trim(s, ";")
	if s == "" {
		return ""
	}
	if !strings.Contains(strings.ToUpper(s), "FREQ=") {
		s = "FREQ=DAILY;" + s
	}
	return s
}

// Parse compiles r. It returns false when r has no rule, no anchor, or a rule that
// does not parse; parse failures are logged and never returned.
func Parse(r Rule) (*rrule.RRule, bool) {
	if r.Anchor == nil {
		return nil, false
	}
	s := Normalize(r.RRule)
	if s == "" {
		return nil, false
	}

	opt, err := rrule.StrToROption(s)
	if err != nil {
		zap.L().Warn("[Recurrence] Failed to parse RRULE", zap.String("rrule", r.RRule), zap.Error(err))
		return nil, false
	}

	loc := r.Location
	if loc == nil || r.AllDay {
		loc = time.UTC
	}
	opt.Dtstart = r.Anchor.In(loc)
	if r.AllDay {
		// Dates repeat on the calendar date, never on the owner's wall clock.
		y, m, d := r.Anchor.UTC().Date()
		opt.Dtstart = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	if opt.Until.IsZero() && r.EndDate != nil {
		opt.Until = endOfDay(*r.EndDate).In(loc)
	}
	if opt.Count == 0 && r.Count != nil && *r.Count > 0 {
		opt.Count = *r.Count
	}

	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		zap.L().Warn("[Recurrence] Invalid RRULE options", zap.String("rrule", r.RRule), zap.Error(err))
		return nil, false
	}
	return rr, true
}

// CalendarRecurrence renders the rule of t as the recurrence lines of a calendar
// event. UNTIL or COUNT come from the task when the rule itself has neither.
func CalendarRecurrence(t *domain.Task) []string {
	if !t.HasRecurrence() {
		return nil
	}
	s := Normalize(t.RecurrenceRule)
	upper := strings.ToUpper(s)
	if !strings.Contains(upper, "UNTIL=") && !strings.Contains(upper, "COUNT=") {
		switch {
		case t.RecurrenceEndDate != nil:
			s += ";UNTIL=" + endOfDay(*t.RecurrenceEndDate).Format("20060102T150405Z")
		case t.RecurrenceCount != nil && *t.RecurrenceCount > 0:
			s += fmt.Sprintf(";COUNT=%d", *t.RecurrenceCount)
		}
	}
	return []string{"RRULE:" + s}
}

// endOfDay widens a date-only end date so occurrences later that day still count.
func endOfDay(t time.Time) time.Time {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Add(24*time.Hour - time.Second)
	}
	return u
}

// Occurrences returns the ordered, duplicate-free occurrence instants of r inside
// [start, end), in UTC.
func Occurrences(r Rule, start, end time.Time) []time.Time {
	if !end.After(start) {
		return nil
	}
	rr, ok := Parse(r)
	if !ok {
		return nil
	}

	var out []time.Time
	var last time.Time
	for _, occ := range rr.Between(start, end, true) {
		if !occ.Before(end) {
			continue
		}
		occ = occ.UTC()
		if len(out) > 0 && occ.Equal(last) {
			continue
		}
		out = append(out, occ)
		last = occ
	}
	return out
}

// Next returns the first occurrence strictly after ref.
func Next(r Rule, ref time.Time) (time.Time, bool) {
	rr, ok := Parse(r)
	if !ok {
		return time.Time{}, false
	}
	next := rr.After(ref, false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next.UTC(), true
}

// HasEnded reports whether r can produce no further occurrence after now.
func HasEnded(r Rule, now time.Time) bool {
	if strings.TrimSpace(r.RRule) == "" {
		return true
	}
	if r.EndDate != nil && now.After(endOfDay(*r.EndDate)) {
		return true
	}
	_, ok := Next(r, now)
	return !ok
}

// Describe renders e.g. "Weekly until Mar 31, 2025" or "Daily for 5 times".
func Describe(pattern domain.RecurrencePattern, endDate *time.Time, count *int) string {
	var parts []string
	switch pattern {
	case domain.PatternDaily:
		parts = append(parts, "Daily")
	case domain.PatternWeekly:
		parts = append(parts, "Weekly")
	case domain.PatternMonthly:
		parts = append(parts, "Monthly")
	case domain.PatternYearly:
		parts = append(parts, "Yearly")
	default:
		return ""
	}

	if endDate != nil {
		parts = append(parts, "until "+endDate.UTC().Format("Jan 2, 2006"))
	} else if count != nil && *count > 0 {
		parts = append(parts, fmt.Sprintf("for %d times", *count))
	}
	return strings.Join(parts, " ")
}

// PatternOf derives the display tag from a rule's frequency.
func PatternOf(raw string) domain.RecurrencePattern {
	s := strings.ToUpper(Normalize(raw))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "FREQ=WEEKLY"):
		return domain.PatternWeekly
	case strings.Contains(s, "FREQ=MONTHLY"):
		return domain.PatternMonthly
	case strings.Contains(s, "FREQ=YEARLY"):
		return domain.PatternYearly
	default:
		return domain.PatternDaily
	}
}
