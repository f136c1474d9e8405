package notification

import (
	"context"
	"time"

	"cyra-kanban/pkg/sse"
)

// Kind names what changed; it doubles as the SSE event name.
type Kind string

const (
	KindTaskCreated       Kind = "task_created"
	KindTaskUpdated       Kind = "task_updated"
	KindTaskMoved         Kind = "task_moved"
	KindTaskDeleted       Kind = "task_deleted"
	KindTaskArchived      Kind = "task_archived"
	KindSubtaskChanged    Kind = "subtask_changed"
	KindAttachmentChanged Kind = "attachment_changed"
	KindNoteAdded         Kind = "note_added"
	KindLogAdded          Kind = "log_added"
	KindStatusChanged     Kind = "status_changed"
	KindCalendarSynced    Kind = "calendar_synced"
)

// ChangeEvent tells a user's open boards to refetch.
type ChangeEvent struct {
	UserID   string    `json:"user_id"`
	Kind     Kind      `json:"kind"`
	EntityID string    `json:"entity_id,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers change events. Publishing never fails the mutation that caused it.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ChangeEvent) {}

// LocalPublisher streams events to clients connected to this process.
type LocalPublisher struct {
	sse *sse.Manager
}

func NewLocalPublisher(m *sse.Manager) *LocalPublisher {
	return &LocalPublisher{sse: m}
}

func (p *LocalPublisher) Publish(_ context.Context, ev ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	p.sse.SendToUser(ev.UserID, string(ev.Kind), ev)
}
