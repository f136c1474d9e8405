package usecase

import (
	"context"

	taskdomain "cyra-kanban/internal/task/domain"
)

// Action tags accepted by Execute.
const (
	ActionAddTask       = "add_task"
	ActionMoveTask      = "move_task"
	ActionMarkDone      = "mark_done"
	ActionAddNote       = "add_note"
	ActionGetTasks      = "get_tasks"
	ActionGetNotes      = "get_notes"
	ActionUpdateStatus  = "update_status"
	ActionAddLog        = "add_log"
	ActionUpdateTask    = "update_task"
	ActionDeleteTask    = "delete_task"
	ActionAddSubtask    = "add_subtask"
	ActionToggleSubtask = "toggle_subtask"
	ActionGetStatus     = "get_status"
)

// Actions lists every supported tag in a stable order.
var Actions = []string{
	ActionAddTask,
	ActionMoveTask,
	ActionMarkDone,
	ActionAddNote,
	ActionGetTasks,
	ActionGetNotes,
	ActionUpdateStatus,
	ActionAddLog,
	ActionUpdateTask,
	ActionDeleteTask,
	ActionAddSubtask,
	ActionToggleSubtask,
	ActionGetStatus,
}

// AutomationUsecase runs board mutations on behalf of the automation actor.
type AutomationUsecase interface {
	// Execute dispatches cmd by its action tag. The result is merged into the response body.
	Execute(ctx context.Context, ownerID string, cmd Command) (Result, error)
	// CreateTask handles the flat task payload of tools that do not speak the action protocol.
	CreateTask(ctx context.Context, ownerID string, req FlatTaskRequest) (*taskdomain.Task, error)
}

type Result map[string]any

// Command is the tagged request body. Only the fields of the given action are read.
type Command struct {
	Action string `json:"action"`

	TaskID      string  `json:"task_id"`
	SubtaskID   string  `json:"subtask_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Column      string  `json:"column"`
	ToColumn    string  `json:"to_column"`
	Priority    *string `json:"priority"`
	EventDate   *string `json:"event_date"`
	Project     *string `json:"project"`

	Content    string `json:"content"`
	UnreadOnly bool   `json:"unread_only"`

	State       string  `json:"state"`
	CurrentTask *string `json:"current_task"`

	LogAction string `json:"log_action"`
	Details   string `json:"details"`
}

// FlatTaskRequest accepts both column/column_id, event_date/due_date and
// client_name/project spellings.
type FlatTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Column      string `json:"column"`
	ColumnID    string `json:"column_id"`
	Priority    string `json:"priority"`
	EventDate   string `json:"event_date"`
	DueDate     string `json:"due_date"`
	ClientName  string `json:"client_name"`
	Project     string `json:"project"`
	Source      string `json:"source"`
}
