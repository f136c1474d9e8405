package usecase

import (
	"context"
	"io"
	"time"

	"cyra-kanban/internal/notification"
	"cyra-kanban/internal/recurrence"
	"cyra-kanban/internal/task/domain"
)

// TaskUsecase defines the board operations. Every method is scoped to ownerID and
// reports cards of other owners as not found.
type TaskUsecase interface {
	CreateTask(ctx context.Context, ownerID string, req CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]*domain.Task, error)

	// CalendarView expands scheduled cards into their occurrences inside [start, end).
	CalendarView(ctx context.Context, ownerID string, start, end time.Time) ([]recurrence.Occurrence, error)

	MoveTask(ctx context.Context, ownerID, taskID, column string) (*domain.Task, error)
	MarkDone(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, req TaskUpdateRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error

	// ArchiveCompleted archives done cards older than the retention window. An empty
	// ownerID sweeps every owner.
	ArchiveCompleted(ctx context.Context, ownerID string, now time.Time) (int64, error)
	RestoreTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error)

	ListSubtasks(ctx context.Context, ownerID, taskID string) ([]*domain.Subtask, error)
	CreateSubtask(ctx context.Context, ownerID, taskID string, req CreateSubtaskRequest) (*domain.Subtask, error)
	UpdateSubtask(ctx context.Context, ownerID, subtaskID string, req SubtaskUpdateRequest) (*domain.Subtask, error)
	ToggleSubtask(ctx context.Context, ownerID, subtaskID string) (*domain.Subtask, error)
	DeleteSubtask(ctx context.Context, ownerID, subtaskID string) error

	ListAttachments(ctx context.Context, ownerID, taskID string) ([]*domain.Attachment, error)
	UploadAttachment(ctx context.Context, ownerID, taskID string, file UploadFile) (*domain.Attachment, error)
	DeleteAttachment(ctx context.Context, ownerID, attachmentID string) error
}

// CreateTaskRequest is the input of CreateTask. Column and priority are free text.
type CreateTaskRequest struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Column            string  `json:"column_id"`
	Priority          string  `json:"priority"`
	Project           string  `json:"project"`
	ClientID          *string `json:"client_id"`
	ProductID         *string `json:"product_id"`
	EventDate         string  `json:"event_date"`
	RecurrenceRule    string  `json:"recurrence_rule"`
	RecurrencePattern string  `json:"recurrence_pattern"`
	RecurrenceEndDate string  `json:"recurrence_end_date"`
	RecurrenceCount   *int    `json:"recurrence_count"`
}

// TaskUpdateRequest lists the fields a caller may change. Nil leaves a field alone;
// an empty string clears an optional one.
type TaskUpdateRequest struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	Column            *string `json:"column_id,omitempty"`
	Priority          *string `json:"priority,omitempty"`
	Project           *string `json:"project,omitempty"`
	ClientID          *string `json:"client_id,omitempty"`
	ProductID         *string `json:"product_id,omitempty"`
	EventDate         *string `json:"event_date,omitempty"`
	RecurrenceRule    *string `json:"recurrence_rule,omitempty"`
	RecurrencePattern *string `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *string `json:"recurrence_end_date,omitempty"`
	RecurrenceCount   *int    `json:"recurrence_count,omitempty"`
}

type CreateSubtaskRequest struct {
	Title    string `json:"title"`
	Position *int   `json:"position"`
}

type SubtaskUpdateRequest struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Position  *int    `json:"position,omitempty"`
}

// UploadFile is an attachment body on its way to object storage.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CalendarSync pushes cards to the owner's external calendar. SyncTask records the
// outcome on the card itself, so callers only log its error.
type CalendarSync interface {
	SyncTask(ctx context.Context, userID string, task *domain.Task) error
	DeleteTaskEvent(ctx context.Context, userID string, task *domain.Task) error
	AutoSyncEnabled(ctx context.Context, userID string) bool
	Location(ctx context.Context, userID string) *time.Location
}

// ObjectStore keeps attachment bodies.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Publisher announces board changes to connected clients.
type Publisher interface {
	Publish(ctx context.Context, ev notification.ChangeEvent)
}
