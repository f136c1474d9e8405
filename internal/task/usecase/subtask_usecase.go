package usecase

import (
	"context"
	"errors"
	"strings"

	"cyra-kanban/internal/notification"
	"cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/errutil"
)

func (u *taskUsecase) ListSubtasks(ctx context.Context, ownerID, taskID string) ([]*domain.Subtask, error) {
	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	subtasks, err := u.subtaskRepo.ListByTask(ctx, ownerID, task.ID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to list subtasks", errutil.WithErr(err))
	}
	return subtasks, nil
}

// CreateSubtask appends to the task's checklist; the first item gets position 0.
func (u *taskUsecase) CreateSubtask(ctx context.Context, ownerID, taskID string, req CreateSubtaskRequest) (*domain.Subtask, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errutil.NewBadRequest("Title is required", errutil.WithErr(domain.ErrTitleRequired))
	}
	task, err := u.findTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	subtask := &domain.Subtask{TaskID: task.ID, UserID: ownerID, Title: title}
	if req.Position != nil {
		subtask.Position = *req.Position
	} else {
		max, err := u.subtaskRepo.MaxPosition(ctx, task.ID)
		if err != nil {
			return nil, errutil.NewInternal("Failed to allocate position", errutil.WithErr(err))
		}
		subtask.Position = max + 1
	}

	if err := u.subtaskRepo.Create(ctx, subtask); err != nil {
		return nil, errutil.NewInternal("Failed to create subtask", errutil.WithErr(err))
	}

	u.publish(ctx, ownerID, notification.KindSubtaskChanged, task.ID, subtask.Title)
	return subtask, nil
}

func (u *taskUsecase) UpdateSubtask(ctx context.Context, ownerID, subtaskID string, req SubtaskUpdateRequest) (*domain.Subtask, error) {
	subtask, err := u.findSubtask(ctx, ownerID, subtaskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errutil.NewBadRequest("Title is required", errutil.WithErr(domain.ErrTitleRequired))
		}
		subtask.Title = title
	}
	if req.Completed != nil {
		subtask.Completed = *req.Completed
	}
	if req.Position != nil {
		subtask.Position = *req.Position
	}

	return u.saveSubtask(ctx, ownerID, subtask)
}

func (u *taskUsecase) ToggleSubtask(ctx context.Context, ownerID, subtaskID string) (*domain.Subtask, error) {
	subtask, err := u.findSubtask(ctx, ownerID, subtaskID)
	if err != nil {
		return nil, err
	}
	subtask.Completed = !subtask.Completed
	return u.saveSubtask(ctx, ownerID, subtask)
}

func (u *taskUsecase) DeleteSubtask(ctx context.Context, ownerID, subtaskID string) error {
	subtask, err := u.findSubtask(ctx, ownerID, subtaskID)
	if err != nil {
		return err
	}
	if err := u.subtaskRepo.Delete(ctx, ownerID, subtask.ID); err != nil {
		if errors.Is(err, domain.ErrSubtaskNotFound) {
			return subtaskNotFound()
		}
		return errutil.NewInternal("Failed to delete subtask", errutil.WithErr(err))
	}
	u.publish(ctx, ownerID, notification.KindSubtaskChanged, subtask.TaskID, subtask.Title)
	return nil
}

func (u *taskUsecase) saveSubtask(ctx context.Context, ownerID string, subtask *domain.Subtask) (*domain.Subtask, error) {
	if err := u.subtaskRepo.Update(ctx, subtask); err != nil {
		return nil, errutil.NewInternal("Failed to update subtask", errutil.WithErr(err))
	}
	u.publish(ctx, ownerID, notification.KindSubtaskChanged, subtask.TaskID, subtask.Title)
	return subtask, nil
}

func (u *taskUsecase) findSubtask(ctx context.Context, ownerID, subtaskID string) (*domain.Subtask, error) {
	subtask, err := u.subtaskRepo.FindByID(ctx, ownerID, subtaskID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load subtask", errutil.WithErr(err))
	}
	if subtask == nil {
		return nil, subtaskNotFound()
	}
	return subtask, nil
}

func subtaskNotFound() error {
	return errutil.NewNotFound("Subtask not found", errutil.WithErr(domain.ErrSubtaskNotFound))
}
