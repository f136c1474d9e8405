package domain

// TaskFilter narrows a board listing.
type TaskFilter struct {
	Column          *Column
	IncludeArchived bool
	ArchivedOnly    bool
	Query           string
	Limit           int
	Offset          int
}
