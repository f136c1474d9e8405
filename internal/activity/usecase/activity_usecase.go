package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"cyra-kanban/internal/activity/domain"
	"cyra-kanban/internal/activity/repository"
	"cyra-kanban/internal/notification"
	taskdomain "cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/errutil"

	"go.uber.org/zap"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = domain.MaxLogsPerUser
)

type activityUsecase struct {
	notes     repository.NoteRepository
	logs      repository.LogRepository
	status    repository.StatusRepository
	publisher notification.Publisher
}

func NewActivityUsecase(notes repository.NoteRepository, logs repository.LogRepository, status repository.StatusRepository, publisher notification.Publisher) ActivityUsecase {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	return &activityUsecase{notes: notes, logs: logs, status: status, publisher: publisher}
}

func (u *activityUsecase) AddNote(ctx context.Context, userID string, req NoteRequest) (*domain.Note, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, errutil.NewBadRequest("Content is required", errutil.WithErr(domain.ErrContentMissing))
	}

	from := strings.ToLower(strings.TrimSpace(req.From))
	if from == "" {
		from = string(taskdomain.ActorFrom(ctx))
	}

	note := &domain.Note{UserID: userID, Content: content, From: from}
	if err := u.notes.Create(ctx, note); err != nil {
		return nil, errutil.NewInternal("Failed to save note", errutil.WithErr(err))
	}

	u.publisher.Publish(ctx, notification.ChangeEvent{
		UserID:   userID,
		Kind:     notification.KindNoteAdded,
		EntityID: note.ID,
		Actor:    from,
		Summary:  content,
		At:       note.CreatedAt,
	})
	return note, nil
}

func (u *activityUsecase) ListNotes(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Note, error) {
	notes, err := u.notes.List(ctx, userID, unreadOnly)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load notes", errutil.WithErr(err))
	}
	return notes, nil
}

func (u *activityUsecase) SetNoteRead(ctx context.Context, userID, noteID string, read bool) (*domain.Note, error) {
	note, err := u.notes.SetRead(ctx, userID, noteID, read)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			return nil, errutil.NewNotFound("Note not found", errutil.WithErr(err))
		}
		return nil, errutil.NewInternal("Failed to update note", errutil.WithErr(err))
	}
	return note, nil
}

func (u *activityUsecase) AddLog(ctx context.Context, userID string, req LogRequest) (*domain.LogEntry, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, errutil.NewBadRequest("Action is required")
	}

	entry := &domain.LogEntry{
		UserID:  userID,
		Action:  action,
		Details: req.Details,
		TaskID:  req.TaskID,
		Actor:   string(taskdomain.ActorFrom(ctx)),
	}
	if err := u.logs.Append(ctx, entry, domain.MaxLogsPerUser); err != nil {
		zap.L().Error("[Activity] Failed to append log", zap.String("action", action), zap.Error(err))
		return nil, errutil.NewInternal("Failed to save log", errutil.WithErr(err))
	}

	u.publisher.Publish(ctx, notification.ChangeEvent{
		UserID:   userID,
		Kind:     notification.KindLogAdded,
		EntityID: entry.ID,
		Actor:    entry.Actor,
		Summary:  action,
		At:       entry.CreatedAt,
	})
	return entry, nil
}

func (u *activityUsecase) RecentLogs(ctx context.Context, userID string, since time.Time, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)

	logs, err := u.logs.Recent(ctx, userID, since, limit)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load logs", errutil.WithErr(err))
	}
	return logs, nil
}

func (u *activityUsecase) GetStatus(ctx context.Context, userID string) (*domain.AgentStatus, error) {
	status, err := u.status.Get(ctx, userID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to load status", errutil.WithErr(err))
	}
	if status == nil {
		status = &domain.AgentStatus{UserID: userID, State: domain.StateIdle}
	}
	return status, nil
}

func (u *activityUsecase) UpdateStatus(ctx context.Context, userID string, req StatusRequest) (*domain.AgentStatus, error) {
	status, err := u.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	if state := domain.AgentState(strings.ToLower(strings.TrimSpace(req.State))); state != "" {
		if !state.Valid() {
			return nil, errutil.NewBadRequest("Invalid state: "+req.State, errutil.WithErr(domain.ErrInvalidState))
		}
		status.State = state
	}
	if req.Task != nil {
		if task := strings.TrimSpace(*req.Task); task != "" {
			status.CurrentTask = &task
		} else {
			status.CurrentTask = nil
		}
	}

	if err := u.status.Save(ctx, status); err != nil {
		return nil, errutil.NewInternal("Failed to save status", errutil.WithErr(err))
	}

	u.publisher.Publish(ctx, notification.ChangeEvent{
		UserID:  userID,
		Kind:    notification.KindStatusChanged,
		Actor:   string(taskdomain.ActorFrom(ctx)),
		Summary: string(status.State),
		At:      status.UpdatedAt,
	})
	return status, nil
}
