package domain

import (
	"errors"
	"strings"
	"time"
)

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Column is a workflow stage on the board
type Column string

const (
	ColumnInbox   Column = "inbox"
	ColumnWorking Column = "working"
	ColumnBlocked Column = "blocked"
	ColumnReview  Column = "review"
	ColumnDone    Column = "done"
)

// Columns lists the board stages in display order.
var Columns = []Column{ColumnInbox, ColumnWorking, ColumnBlocked, ColumnReview, ColumnDone}

// SyncStatus tracks the external calendar state of a task
type SyncStatus string

const (
	SyncStatusUnsynced SyncStatus = "unsynced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusError    SyncStatus = "error"
)

// Actor identifies who performed a mutation
type Actor string

const (
	ActorHuman      Actor = "victor"
	ActorAutomation Actor = "cyra"
)

// RecurrencePattern is the coarse display tag of a recurrence rule
type RecurrencePattern string

const (
	PatternDaily   RecurrencePattern = "daily"
	PatternWeekly  RecurrencePattern = "weekly"
	PatternMonthly RecurrencePattern = "monthly"
	PatternYearly  RecurrencePattern = "yearly"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubtaskNotFound    = errors.New("subtask not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrTitleRequired      = errors.New("title is required")
	ErrMissingDueDate     = errors.New("task has no due date")
	ErrFileTooLarge       = errors.New("file too large")
)

// Task is a card on the kanban board
type Task struct {
	ID          string   `json:"id" gorm:"primaryKey"`
	UserID      string   `json:"user_id" gorm:"index:idx_tasks_user_column;not null"`
	Title       string   `json:"title" gorm:"not null"`
	Description string   `json:"description,omitempty"`
	ColumnID    Column   `json:"column_id" gorm:"index:idx_tasks_user_column;not null;default:inbox"`
	Priority    Priority `json:"priority" gorm:"default:medium"`
	Project     string   `json:"project,omitempty"`
	ClientID    *string  `json:"client_id,omitempty" gorm:"index"`
	ProductID   *string  `json:"product_id,omitempty" gorm:"index"`
	Position    int      `json:"position" gorm:"not null;default:0"`

	EventDate *time.Time `json:"event_date,omitempty" gorm:"index"`
	AllDay    bool       `json:"all_day" gorm:"default:false"`

	RecurrenceRule    string            `json:"recurrence_rule,omitempty"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *time.Time        `json:"recurrence_end_date,omitempty"`
	RecurrenceCount   *int              `json:"recurrence_count,omitempty"`

	GoogleCalendarEventID    *string    `json:"google_calendar_event_id,omitempty"`
	GoogleCalendarSyncStatus SyncStatus `json:"google_calendar_sync_status" gorm:"default:unsynced"`
	GoogleCalendarSyncedAt   *time.Time `json:"google_calendar_synced_at,omitempty"`
	GoogleCalendarError      *string    `json:"google_calendar_error,omitempty"`

	Archived    bool       `json:"archived" gorm:"index;default:false"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedBy Actor     `json:"created_by" gorm:"default:victor"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Subtasks    []Subtask    `json:"subtasks,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Attachments []Attachment `json:"attachments,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// HasRecurrence reports whether the task can generate occurrences.
func (t *Task) HasRecurrence() bool {
	return t.RecurrenceRule != "" && t.EventDate != nil
}

// Subtask is a checklist item owned by a task
type Subtask struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"index;not null"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Completed bool      `json:"completed" gorm:"default:false"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a file stored in the object bucket and referenced by a task
type Attachment struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"index;not null"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	FileName  string    `json:"file_name" gorm:"not null"`
	FilePath  string    `json:"file_path" gorm:"not null"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	URL       *string   `json:"url" gorm:"-"` // signed at read time
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the attachment table name stable
func (Attachment) TableName() string {
	return "task_attachments"
}

// ParsePriority maps free text to a priority, defaulting to medium.
func ParsePriority(p string) Priority {
	p = strings.ToLower(strings.TrimSpace(p))
	switch {
	case p == "high":
		return PriorityHigh
	case p == "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// ParseColumn case-folds a column name. Empty input means inbox; unknown names are
// returned as given so callers can reject them.
func ParseColumn(c string) Column {
	c = strings.ToLower(strings.TrimSpace(c))
	switch c {
	case "":
		return ColumnInbox
	case "needs-human", "needs_human", "needs human":
		return ColumnBlocked
	case "in-progress", "in_progress", "doing":
		return ColumnWorking
	}
	return Column(c)
}

// Valid reports whether c is one of the board stages.
func (c Column) Valid() bool {
	for _, col := range Columns {
		if col == c {
			return true
		}
	}
	return false
}
