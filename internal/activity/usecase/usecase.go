package usecase

import (
	"context"
	"time"

	"cyra-kanban/internal/activity/domain"
)

// ActivityUsecase covers the notes, audit log and status shared by the owner and the
// automation actor.
type ActivityUsecase interface {
	AddNote(ctx context.Context, userID string, req NoteRequest) (*domain.Note, error)
	ListNotes(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Note, error)
	SetNoteRead(ctx context.Context, userID, noteID string, read bool) (*domain.Note, error)

	AddLog(ctx context.Context, userID string, req LogRequest) (*domain.LogEntry, error)
	RecentLogs(ctx context.Context, userID string, since time.Time, limit int) ([]*domain.LogEntry, error)

	GetStatus(ctx context.Context, userID string) (*domain.AgentStatus, error)
	UpdateStatus(ctx context.Context, userID string, req StatusRequest) (*domain.AgentStatus, error)
}

type NoteRequest struct {
	Content string `json:"content"`
	From    string `json:"from"`
}

type LogRequest struct {
	Action  string  `json:"action"`
	Details string  `json:"details"`
	TaskID  *string `json:"taskId"`
}

// StatusRequest leaves State alone when empty. A Task of "" clears the current task.
type StatusRequest struct {
	State string  `json:"state"`
	Task  *string `json:"task"`
}
