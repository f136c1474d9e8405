package usecase

import (
	taskdomain "cyra-kanban/internal/task/domain"
)

// NormalizeColumn trims and case-folds a column name, mapping aliases such as
// needs-human onto board stages. Empty input means inbox.
func NormalizeColumn(raw string) string {
	return string(taskdomain.ParseColumn(raw))
}

// NormalizePriority trims and case-folds a priority. Anything unrecognised is medium.
func NormalizePriority(raw string) string {
	return string(taskdomain.ParsePriority(raw))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
