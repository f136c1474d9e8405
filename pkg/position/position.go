// Package position hands out append-to-end ordering values for board columns.
package position

import "context"

// MaxFunc reports the current highest position in a column, 0 when empty.
type MaxFunc func(ctx context.Context, ownerID, column string) (int, error)

// Allocator returns the position for the next card appended to a column.
type Allocator interface {
	Next(ctx context.Context, ownerID, column string) (int, error)
}

// DBAllocator reads the column max and adds one. The read and the following insert are
// separate statements, so two concurrent callers can be handed the same value.
type DBAllocator struct {
	max MaxFunc
}

func NewDBAllocator(max MaxFunc) *DBAllocator {
	return &DBAllocator{max: max}
}

func (a *DBAllocator) Next(ctx context.Context, ownerID, column string) (int, error) {
	current, err := a.max(ctx, ownerID, column)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}
