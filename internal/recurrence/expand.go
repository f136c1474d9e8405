package recurrence

import (
	"sort"
	"strings"
	"time"

	"cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/timeutil"
)

const instanceSep = "_instance_"

// Occurrence is a task as it appears on one calendar date. Instances are read only;
// writes must go to OriginalID.
type Occurrence struct {
	domain.Task
	OriginalID string `json:"original_id"`
	IsInstance bool   `json:"is_instance"`
}

// InstanceID derives the synthetic id of the occurrence of taskID on date.
func InstanceID(taskID string, date time.Time) string {
	return taskID + instanceSep + timeutil.FormatDate(date)
}

// ResolveID maps an instance id back to its task id; other ids are returned unchanged.
func ResolveID(id string) string {
	if idx := strings.Index(id, instanceSep); idx > 0 {
		return id[:idx]
	}
	return id
}

// IsInstanceID reports whether id names a synthetic occurrence.
func IsInstanceID(id string) bool {
	return strings.Index(id, instanceSep) > 0
}

// Expand flattens tasks into the occurrences visible in [start, end). Tasks without an
// event date are left out. A recurring task contributes itself when its anchor lies in
// the window plus one instance per further occurrence.
func Expand(tasks []*domain.Task, start, end time.Time, loc *time.Location) []Occurrence {
	var out []Occurrence
	for _, t := range tasks {
		if t == nil || t.EventDate == nil {
			continue
		}
		anchor := *t.EventDate
		inWindow := !anchor.Before(start) && anchor.Before(end)
		if inWindow {
			out = append(out, Occurrence{Task: *t, OriginalID: t.ID})
		}
		if !t.HasRecurrence() {
			continue
		}

		for _, occ := range Occurrences(FromTask(t, loc), start, end) {
			if occ.Equal(anchor) {
				continue
			}
			inst := *t
			inst.ID = InstanceID(t.ID, occ)
			date := occ
			inst.EventDate = &date
			inst.Subtasks = nil
			inst.Attachments = nil
			out = append(out, Occurrence{Task: inst, OriginalID: t.ID, IsInstance: true})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EventDate.Before(*out[j].EventDate)
	})
	return out
}
