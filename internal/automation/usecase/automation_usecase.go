package usecase

import (
	"context"
	"strings"

	activityusecase "cyra-kanban/internal/activity/usecase"
	clientusecase "cyra-kanban/internal/client/usecase"
	taskdomain "cyra-kanban/internal/task/domain"
	taskusecase "cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/errutil"

	"go.uber.org/zap"
)

type automationUsecase struct {
	tasks    taskusecase.TaskUsecase
	activity activityusecase.ActivityUsecase
	clients  clientusecase.ClientUsecase
}

// NewAutomationUsecase wires the automation actor onto the board. clients may be nil,
// in which case client names are kept as free-text projects only.
func NewAutomationUsecase(
	tasks taskusecase.TaskUsecase,
	activity activityusecase.ActivityUsecase,
	clients clientusecase.ClientUsecase,
) AutomationUsecase {
	return &automationUsecase{tasks: tasks, activity: activity, clients: clients}
}

func (u *automationUsecase) Execute(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	ctx = taskdomain.WithActor(ctx, taskdomain.ActorAutomation)

	switch strings.TrimSpace(cmd.Action) {
	case ActionAddTask:
		return u.addTask(ctx, ownerID, cmd)
	case ActionMoveTask:
		return u.moveTask(ctx, ownerID, cmd)
	case ActionMarkDone:
		return u.markDone(ctx, ownerID, cmd)
	case ActionUpdateTask:
		return u.updateTask(ctx, ownerID, cmd)
	case ActionDeleteTask:
		return u.deleteTask(ctx, ownerID, cmd)
	case ActionGetTasks:
		tasks, err := u.tasks.ListTasks(ctx, ownerID, taskdomain.TaskFilter{})
		if err != nil {
			return nil, err
		}
		return Result{"tasks": tasks}, nil

	case ActionAddSubtask:
		return u.addSubtask(ctx, ownerID, cmd)
	case ActionToggleSubtask:
		return u.toggleSubtask(ctx, ownerID, cmd)

	case ActionAddNote:
		note, err := u.activity.AddNote(ctx, ownerID, activityusecase.NoteRequest{
			Content: cmd.Content,
			From:    string(taskdomain.ActorAutomation),
		})
		if err != nil {
			return nil, err
		}
		return Result{"note": note}, nil
	case ActionGetNotes:
		notes, err := u.activity.ListNotes(ctx, ownerID, cmd.UnreadOnly)
		if err != nil {
			return nil, err
		}
		return Result{"notes": notes}, nil
	case ActionAddLog:
		entry, err := u.activity.AddLog(ctx, ownerID, activityusecase.LogRequest{
			Action:  cmd.LogAction,
			Details: cmd.Details,
			TaskID:  optional(cmd.TaskID),
		})
		if err != nil {
			return nil, err
		}
		return Result{"log": entry}, nil
	case ActionUpdateStatus:
		// An omitted current_task clears it.
		task := ""
		if cmd.CurrentTask != nil {
			task = *cmd.CurrentTask
		}
		status, err := u.activity.UpdateStatus(ctx, ownerID, activityusecase.StatusRequest{State: cmd.State, Task: &task})
		if err != nil {
			return nil, err
		}
		return Result{"status": status}, nil
	case ActionGetStatus:
		status, err := u.activity.GetStatus(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return Result{"status": status}, nil

	case "":
		return nil, errutil.NewBadRequest("Action is required")
	default:
		return nil, errutil.NewBadRequest("Unknown action: " + cmd.Action)
	}
}

func (u *automationUsecase) addTask(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	req := taskusecase.CreateTaskRequest{
		Title:       deref(cmd.Title),
		Description: deref(cmd.Description),
		Column:      cmd.Column,
		Priority:    deref(cmd.Priority),
		EventDate:   deref(cmd.EventDate),
		Project:     deref(cmd.Project),
	}
	task, err := u.tasks.CreateTask(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	u.audit(ctx, ownerID, "Added task: "+task.Title, task.Description, task.ID)
	return Result{"task": task}, nil
}

func (u *automationUsecase) moveTask(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	if cmd.TaskID == "" || strings.TrimSpace(cmd.ToColumn) == "" {
		return nil, errutil.NewBadRequest("task_id and to_column are required")
	}
	task, err := u.tasks.MoveTask(ctx, ownerID, cmd.TaskID, cmd.ToColumn)
	if err != nil {
		return nil, err
	}
	u.audit(ctx, ownerID, "Moved task to "+string(task.ColumnID), task.Title, task.ID)
	return Result{"task": task}, nil
}

func (u *automationUsecase) markDone(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	if cmd.TaskID == "" {
		return nil, errutil.NewBadRequest("task_id is required")
	}
	task, err := u.tasks.MarkDone(ctx, ownerID, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	u.audit(ctx, ownerID, "Completed task: "+task.Title, "", task.ID)
	return Result{"task": task}, nil
}

func (u *automationUsecase) updateTask(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	if cmd.TaskID == "" {
		return nil, errutil.NewBadRequest("task_id is required")
	}
	req := taskusecase.TaskUpdateRequest{
		Title:       cmd.Title,
		Description: cmd.Description,
		Priority:    cmd.Priority,
		EventDate:   cmd.EventDate,
		Project:     cmd.Project,
	}
	if cmd.Column != "" {
		req.Column = &cmd.Column
	}
	task, err := u.tasks.UpdateTask(ctx, ownerID, cmd.TaskID, req)
	if err != nil {
		return nil, err
	}
	u.audit(ctx, ownerID, "Updated task: "+task.Title, "", task.ID)
	return Result{"task": task}, nil
}

func (u *automationUsecase) deleteTask(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	if cmd.TaskID == "" {
		return nil, errutil.NewBadRequest("task_id is required")
	}
	task, err := u.tasks.GetTask(ctx, ownerID, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	if err := u.tasks.DeleteTask(ctx, ownerID, task.ID); err != nil {
		return nil, err
	}
	u.audit(ctx, ownerID, "Deleted task: "+task.Title, "", task.ID)
	return Result{}, nil
}

func (u *automationUsecase) addSubtask(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	if cmd.TaskID == "" {
		return nil, errutil.NewBadRequest("task_id is required")
	}
	subtask, err := u.tasks.CreateSubtask(ctx, ownerID, cmd.TaskID, taskusecase.CreateSubtaskRequest{Title: deref(cmd.Title)})
	if err != nil {
		return nil, err
	}
	u.audit(ctx, ownerID, "Added subtask: "+subtask.Title, "", subtask.TaskID)
	return Result{"subtask": subtask}, nil
}

func (u *automationUsecase) toggleSubtask(ctx context.Context, ownerID string, cmd Command) (Result, error) {
	if cmd.SubtaskID == "" {
		return nil, errutil.NewBadRequest("subtask_id is required")
	}
	subtask, err := u.tasks.ToggleSubtask(ctx, ownerID, cmd.SubtaskID)
	if err != nil {
		return nil, err
	}
	verb := "Reopened subtask: "
	if subtask.Completed {
		verb = "Completed subtask: "
	}
	u.audit(ctx, ownerID, verb+subtask.Title, "", subtask.TaskID)
	return Result{"subtask": subtask}, nil
}

func (u *automationUsecase) CreateTask(ctx context.Context, ownerID string, req FlatTaskRequest) (*taskdomain.Task, error) {
	ctx = taskdomain.WithActor(ctx, taskdomain.ActorAutomation)

	project := strings.TrimSpace(firstNonEmpty(req.ClientName, req.Project))
	create := taskusecase.CreateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Column:      NormalizeColumn(firstNonEmpty(req.Column, req.ColumnID)),
		Priority:    NormalizePriority(req.Priority),
		EventDate:   firstNonEmpty(req.EventDate, req.DueDate),
		Project:     project,
	}
	if project != "" && u.clients != nil {
		client, err := u.clients.ResolveClient(ctx, ownerID, project)
		if err != nil {
			zap.L().Warn("[Automation] Client lookup failed", zap.String("client", project), zap.Error(err))
		} else if client != nil {
			create.ClientID = &client.ID
		}
	}

	task, err := u.tasks.CreateTask(ctx, ownerID, create)
	if err != nil {
		return nil, err
	}
	details := "via tasks endpoint"
	if req.Source != "" {
		details = "via " + req.Source
	}
	u.audit(ctx, ownerID, "Added task: "+task.Title, details, task.ID)
	return task, nil
}

// audit appends to the activity log. A failed write never fails the mutation.
func (u *automationUsecase) audit(ctx context.Context, ownerID, action, details, taskID string) {
	_, err := u.activity.AddLog(ctx, ownerID, activityusecase.LogRequest{
		Action:  action,
		Details: details,
		TaskID:  optional(taskID),
	})
	if err != nil {
		zap.L().Warn("[Automation] Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
