package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"cyra-kanban/internal/activity/domain"
	"cyra-kanban/internal/activity/repository"
	"cyra-kanban/internal/notification"
	taskdomain "cyra-kanban/internal/task/domain"
	"cyra-kanban/internal/testutil"
	"cyra-kanban/pkg/errutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const owner = "owner-1"

type recordingPublisher struct {
	mu     sync.Mutex
	events []notification.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev notification.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func newUsecase(t *testing.T) (ActivityUsecase, *recordingPublisher) {
	t.Helper()
	db := testutil.NewTestDB(t, &domain.Note{}, &domain.LogEntry{}, &domain.AgentStatus{})
	pub := &recordingPublisher{}
	uc := NewActivityUsecase(
		repository.NewNoteRepository(db),
		repository.NewLogRepository(db),
		repository.NewStatusRepository(db),
		pub,
	)
	return uc, pub
}

func TestNotesReadFlag(t *testing.T) {
	uc, pub := newUsecase(t)
	ctx := context.Background()

	first, err := uc.AddNote(ctx, owner, NoteRequest{Content: "  ship the invoice  "})
	require.NoError(t, err)
	require.Equal(t, "ship the invoice", first.Content)
	require.Equal(t, "victor", first.From)
	require.False(t, first.Read)

	cyraCtx := taskdomain.WithActor(ctx, taskdomain.ActorAutomation)
	second, err := uc.AddNote(cyraCtx, owner, NoteRequest{Content: "done with the draft"})
	require.NoError(t, err)
	require.Equal(t, "cyra", second.From)

	read, err := uc.SetNoteRead(ctx, owner, first.ID, true)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.Equal(t, "ship the invoice", read.Content)

	unread, err := uc.ListNotes(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, second.ID, unread[0].ID)

	all, err := uc.ListNotes(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.Len(t, pub.events, 2)
	require.Equal(t, notification.KindNoteAdded, pub.events[1].Kind)
	require.Equal(t, "cyra", pub.events[1].Actor)
}

func TestNoteValidationAndScope(t *testing.T) {
	uc, _ := newUsecase(t)
	ctx := context.Background()

	_, err := uc.AddNote(ctx, owner, NoteRequest{Content: "   "})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))

	note, err := uc.AddNote(ctx, owner, NoteRequest{Content: "private"})
	require.NoError(t, err)

	_, err = uc.SetNoteRead(ctx, "someone-else", note.ID, true)
	require.Equal(t, errutil.NotFound, errutil.CodeOf(err))
}

func TestLogsAreCappedAndOrdered(t *testing.T) {
	uc, _ := newUsecase(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repoUC := uc.(*activityUsecase)
	for i := 0; i < 5; i++ {
		entry := &domain.LogEntry{UserID: owner, Action: "step", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repoUC.logs.Append(ctx, entry, 3))
	}

	logs, err := uc.RecentLogs(ctx, owner, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	require.True(t, logs[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	require.True(t, logs[2].CreatedAt.Equal(base.Add(4*time.Minute)))

	newer, err := uc.RecentLogs(ctx, owner, base.Add(3*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, newer, 1)

	_, err = uc.AddLog(ctx, owner, LogRequest{})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))
}

func TestAddLogRecordsActor(t *testing.T) {
	uc, pub := newUsecase(t)
	ctx := taskdomain.WithActor(context.Background(), taskdomain.ActorAutomation)
	taskID := "task-1"

	entry, err := uc.AddLog(ctx, owner, LogRequest{Action: "add_task", Details: "Created task", TaskID: &taskID})
	require.NoError(t, err)
	require.Equal(t, "cyra", entry.Actor)
	require.Equal(t, notification.KindLogAdded, pub.events[0].Kind)
}

func TestStatusUpsert(t *testing.T) {
	uc, _ := newUsecase(t)
	ctx := context.Background()

	status, err := uc.GetStatus(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, domain.StateIdle, status.State)

	task := "Writing the report"
	status, err = uc.UpdateStatus(ctx, owner, StatusRequest{State: "Working", Task: &task})
	require.NoError(t, err)
	require.Equal(t, domain.StateWorking, status.State)

	status, err = uc.UpdateStatus(ctx, owner, StatusRequest{State: "thinking"})
	require.NoError(t, err)
	require.Equal(t, "Writing the report", *status.CurrentTask)

	empty := ""
	status, err = uc.UpdateStatus(ctx, owner, StatusRequest{Task: &empty})
	require.NoError(t, err)
	require.Equal(t, domain.StateThinking, status.State)
	require.Nil(t, status.CurrentTask)

	stored, err := uc.GetStatus(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, domain.StateThinking, stored.State)
	require.Nil(t, stored.CurrentTask)

	_, err = uc.UpdateStatus(ctx, owner, StatusRequest{State: "sleeping"})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))
}
