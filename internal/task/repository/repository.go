package repository

import (
	"context"
	"time"

	"cyra-kanban/internal/task/domain"
)

// TaskRepository defines data access for board cards. Every lookup is scoped by owner;
// a card owned by someone else is reported exactly like a missing one.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error

	// FindByID returns (nil, nil) when the card does not exist for userID.
	FindByID(ctx context.Context, userID, id string) (*domain.Task, error)

	// FindByIDWithChildren also loads subtasks and attachments.
	FindByIDWithChildren(ctx context.Context, userID, id string) (*domain.Task, error)

	List(ctx context.Context, userID string, filter domain.TaskFilter) ([]*domain.Task, error)

	// ListScheduled returns unarchived cards that carry an event date.
	ListScheduled(ctx context.Context, userID string) ([]*domain.Task, error)

	Update(ctx context.Context, task *domain.Task) error

	// UpdateFields writes only the given columns.
	UpdateFields(ctx context.Context, userID, id string, fields map[string]interface{}) error

	// Delete removes the card with its subtask and attachment rows.
	Delete(ctx context.Context, userID, id string) error

	// MaxPosition returns the highest position in column, 0 when the column is empty.
	MaxPosition(ctx context.Context, userID, column string) (int, error)

	// ArchiveCompletedBefore archives done cards completed before cutoff. An empty
	// userID sweeps every owner.
	ArchiveCompletedBefore(ctx context.Context, userID string, cutoff, now time.Time) (int64, error)

	// ClearCalendarSync resets the sync fields of every card of userID.
	ClearCalendarSync(ctx context.Context, userID string) error
}

type SubtaskRepository interface {
	Create(ctx context.Context, subtask *domain.Subtask) error
	FindByID(ctx context.Context, userID, id string) (*domain.Subtask, error)
	ListByTask(ctx context.Context, userID, taskID string) ([]*domain.Subtask, error)
	// MaxPosition returns -1 when the task has no subtasks.
	MaxPosition(ctx context.Context, taskID string) (int, error)
	Update(ctx context.Context, subtask *domain.Subtask) error
	Delete(ctx context.Context, userID, id string) error
}

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	FindByID(ctx context.Context, userID, id string) (*domain.Attachment, error)
	// ListByTask returns newest first.
	ListByTask(ctx context.Context, userID, taskID string) ([]*domain.Attachment, error)
	Delete(ctx context.Context, userID, id string) error
}
