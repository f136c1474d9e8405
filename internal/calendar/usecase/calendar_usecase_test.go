package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cyra-kanban/internal/calendar/domain"
	"cyra-kanban/internal/calendar/repository"
	taskdomain "cyra-kanban/internal/task/domain"
	taskrepo "cyra-kanban/internal/task/repository"
	"cyra-kanban/internal/testutil"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/errutil"
	"cyra-kanban/pkg/gcal"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const owner = "owner-1"

type fakeGateway struct {
	upserts   []gcal.Event
	deletes   []string
	refreshes int
	exchanges int
	lastState string

	ExchangeCodeFn       func(code string) (gcal.Token, error)
	RefreshAccessTokenFn func(refreshToken string) (gcal.Token, error)
	UpsertEventFn        func(ev gcal.Event) (string, error)
	DeleteEventFn        func(eventID string) error
	ListEventsFn         func(calendarID string) ([]gcal.Event, error)
	ListCalendarsFn      func() ([]gcal.CalendarEntry, error)
}

func (g *fakeGateway) AuthURL(state string) string {
	g.lastState = state
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (g *fakeGateway) ExchangeCode(_ context.Context, code string) (gcal.Token, error) {
	g.exchanges++
	if g.ExchangeCodeFn != nil {
		return g.ExchangeCodeFn(code)
	}
	return gcal.Token{AccessToken: "access-" + code, RefreshToken: "refresh-" + code}, nil
}

func (g *fakeGateway) RefreshAccessToken(_ context.Context, refreshToken string) (gcal.Token, error) {
	g.refreshes++
	if g.RefreshAccessTokenFn != nil {
		return g.RefreshAccessTokenFn(refreshToken)
	}
	return gcal.Token{AccessToken: "refreshed", RefreshToken: refreshToken}, nil
}

func (g *fakeGateway) UpsertEvent(_ context.Context, _ gcal.Credentials, _ string, ev gcal.Event) (string, error) {
	g.upserts = append(g.upserts, ev)
	if g.UpsertEventFn != nil {
		return g.UpsertEventFn(ev)
	}
	if ev.ID != "" {
		return ev.ID, nil
	}
	return fmt.Sprintf("evt-%d", len(g.upserts)), nil
}

func (g *fakeGateway) DeleteEvent(_ context.Context, _ gcal.Credentials, _ string, eventID string) error {
	g.deletes = append(g.deletes, eventID)
	if g.DeleteEventFn != nil {
		return g.DeleteEventFn(eventID)
	}
	return nil
}

func (g *fakeGateway) ListEvents(_ context.Context, _ gcal.Credentials, calendarID string, _, _ time.Time) ([]gcal.Event, error) {
	if g.ListEventsFn != nil {
		return g.ListEventsFn(calendarID)
	}
	return nil, nil
}

func (g *fakeGateway) ListCalendars(context.Context, gcal.Credentials) ([]gcal.CalendarEntry, error) {
	if g.ListCalendarsFn != nil {
		return g.ListCalendarsFn()
	}
	return []gcal.CalendarEntry{{ID: "work@example.com"}, {ID: "victor@example.com", Primary: true}}, nil
}

type fixture struct {
	uc       *calendarUsecase
	gw       *fakeGateway
	settings repository.SettingsRepository
	tasks    taskrepo.TaskRepository
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &taskdomain.Task{}, &domain.UserSettings{})

	f := &fixture{
		gw:       &fakeGateway{},
		settings: repository.NewSettingsRepository(db),
		tasks:    taskrepo.NewGormTaskRepository(db),
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{
		OAuthStateSecret: "state-secret",
		OAuthStateTTL:    10 * time.Minute,
		DefaultTimezone:  "America/Chicago",
	}
	f.uc = NewCalendarUsecase(f.settings, f.tasks, f.gw, cfg, WithClock(func() time.Time { return f.now })).(*calendarUsecase)
	return f
}

func (f *fixture) connect(t *testing.T, refreshToken string, expiresIn time.Duration) {
	t.Helper()
	expiry := f.now.Add(expiresIn)
	require.NoError(t, f.settings.Save(context.Background(), &domain.UserSettings{
		UserID:                    owner,
		GoogleCalendarEnabled:     true,
		GoogleCalendarSyncEnabled: true,
		GoogleAccessToken:         "access",
		GoogleRefreshToken:        refreshToken,
		GoogleTokenExpiresAt:      &expiry,
	}))
}

func (f *fixture) task(t *testing.T, mutate func(*taskdomain.Task)) *taskdomain.Task {
	t.Helper()
	when := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	task := &taskdomain.Task{
		UserID:                   owner,
		Title:                    "Call client",
		ColumnID:                 taskdomain.ColumnInbox,
		Priority:                 taskdomain.PriorityMedium,
		EventDate:                &when,
		GoogleCalendarSyncStatus: taskdomain.SyncStatusUnsynced,
	}
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func (f *fixture) reload(t *testing.T, id string) *taskdomain.Task {
	t.Helper()
	got, err := f.tasks.FindByID(context.Background(), owner, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestSyncTaskIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	task := f.task(t, nil)
	ctx := context.Background()

	require.NoError(t, f.uc.SyncTask(ctx, owner, task))
	first := *task.GoogleCalendarEventID

	require.NoError(t, f.uc.SyncTask(ctx, owner, task))
	require.Equal(t, first, *task.GoogleCalendarEventID)

	require.Len(t, f.gw.upserts, 2)
	require.Empty(t, f.gw.upserts[0].ID)
	require.Equal(t, first, f.gw.upserts[1].ID)

	stored := f.reload(t, task.ID)
	require.Equal(t, taskdomain.SyncStatusSynced, stored.GoogleCalendarSyncStatus)
	require.Equal(t, first, *stored.GoogleCalendarEventID)
	require.NotNil(t, stored.GoogleCalendarSyncedAt)
	require.Nil(t, stored.GoogleCalendarError)
}

func TestSyncTaskRequiresDueDate(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	task := f.task(t, func(task *taskdomain.Task) { task.EventDate = nil })

	err := f.uc.SyncTask(context.Background(), owner, task)
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))
	require.ErrorIs(t, err, taskdomain.ErrMissingDueDate)
	require.Empty(t, f.gw.upserts)

	stored := f.reload(t, task.ID)
	require.Equal(t, taskdomain.SyncStatusUnsynced, stored.GoogleCalendarSyncStatus)
	require.Nil(t, stored.GoogleCalendarEventID)
}

func TestSyncTaskEventPayload(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	ctx := context.Background()

	timed := f.task(t, func(task *taskdomain.Task) {
		task.Priority = taskdomain.PriorityHigh
		task.RecurrenceRule = "FREQ=WEEKLY;BYDAY=MO"
	})
	require.NoError(t, f.uc.SyncTask(ctx, owner, timed))

	ev := f.gw.upserts[0]
	require.Equal(t, "11", ev.ColorID)
	require.False(t, ev.AllDay)
	require.Equal(t, "America/Chicago", ev.TimeZone)
	require.True(t, ev.Start.Equal(*timed.EventDate))
	require.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	require.Equal(t, []string{"RRULE:FREQ=WEEKLY;BYDAY=MO"}, ev.Recurrence)
	require.Equal(t, timed.ID, ev.TaskID)

	allDay := f.task(t, func(task *taskdomain.Task) {
		day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		task.EventDate = &day
		task.AllDay = true
		task.Priority = taskdomain.PriorityLow
	})
	require.NoError(t, f.uc.SyncTask(ctx, owner, allDay))

	ev = f.gw.upserts[1]
	require.Equal(t, "2", ev.ColorID)
	require.True(t, ev.AllDay)
	require.Equal(t, 24*time.Hour, ev.End.Sub(ev.Start))
	require.Nil(t, ev.Recurrence)
}

func TestSyncFailureIsRecordedOnTask(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	f.gw.UpsertEventFn = func(gcal.Event) (string, error) { return "", errors.New("boom") }
	task := f.task(t, nil)

	err := f.uc.SyncTask(context.Background(), owner, task)
	require.Equal(t, errutil.UpstreamFailure, errutil.CodeOf(err))

	stored := f.reload(t, task.ID)
	require.Equal(t, taskdomain.SyncStatusError, stored.GoogleCalendarSyncStatus)
	require.NotNil(t, stored.GoogleCalendarError)
	require.Contains(t, *stored.GoogleCalendarError, "boom")
	require.Nil(t, stored.GoogleCalendarEventID)
}

func TestEnsureAccessTokenRefreshesNearExpiry(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", 2*time.Minute)
	ctx := context.Background()

	settings, err := f.settings.Get(ctx, owner)
	require.NoError(t, err)

	tok, err := f.uc.EnsureAccessToken(ctx, settings, f.now)
	require.NoError(t, err)
	require.Equal(t, 1, f.gw.refreshes)
	require.Equal(t, "refreshed", tok.AccessToken)
	require.True(t, tok.Expiry.Equal(f.now.Add(time.Hour)))

	stored, err := f.settings.Get(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, "refreshed", stored.GoogleAccessToken)
	require.True(t, stored.GoogleTokenExpiresAt.Equal(f.now.Add(time.Hour)))
	require.Equal(t, "refresh", stored.GoogleRefreshToken)
}

func TestEnsureAccessTokenKeepsValidToken(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", 30*time.Minute)
	ctx := context.Background()

	settings, err := f.settings.Get(ctx, owner)
	require.NoError(t, err)

	tok, err := f.uc.EnsureAccessToken(ctx, settings, f.now)
	require.NoError(t, err)
	require.Equal(t, "access", tok.AccessToken)
	require.Zero(t, f.gw.refreshes)
}

func TestExpiredTokenWithoutRefreshFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "", -time.Minute)
	task := f.task(t, nil)

	err := f.uc.SyncTask(context.Background(), owner, task)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))
	require.ErrorIs(t, err, domain.ErrTokenExpired)
	require.Zero(t, f.gw.refreshes)
	require.Empty(t, f.gw.upserts)

	stored := f.reload(t, task.ID)
	require.Equal(t, taskdomain.SyncStatusError, stored.GoogleCalendarSyncStatus)
}

func TestRefreshFailureIsUpstream(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", -time.Minute)
	f.gw.RefreshAccessTokenFn = func(string) (gcal.Token, error) { return gcal.Token{}, errors.New("invalid_grant") }

	_, err := f.uc.ListEvents(context.Background(), owner, f.now, f.now.Add(24*time.Hour))
	require.Equal(t, errutil.UpstreamFailure, errutil.CodeOf(err))
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestNotConnected(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, nil)

	err := f.uc.SyncTask(context.Background(), owner, task)
	require.ErrorIs(t, err, domain.ErrCalendarNotConnected)
	require.False(t, f.uc.AutoSyncEnabled(context.Background(), owner))

	stored := f.reload(t, task.ID)
	require.Equal(t, taskdomain.SyncStatusUnsynced, stored.GoogleCalendarSyncStatus)
}

func TestOAuthRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.uc.AuthURL(ctx, owner, "/board")
	require.NoError(t, err)
	require.Contains(t, url, f.gw.lastState)

	redirect, err := f.uc.HandleCallback(ctx, "code", f.gw.lastState)
	require.NoError(t, err)
	require.Equal(t, "/board", redirect)

	settings, err := f.settings.Get(ctx, owner)
	require.NoError(t, err)
	require.True(t, settings.GoogleCalendarEnabled)
	require.True(t, settings.GoogleCalendarSyncEnabled)
	require.Equal(t, "victor@example.com", settings.GoogleCalendarID)
	require.Equal(t, "access-code", settings.GoogleAccessToken)
	require.Equal(t, "refresh-code", settings.GoogleRefreshToken)
	require.True(t, settings.GoogleTokenExpiresAt.Equal(f.now.Add(time.Hour)))
	require.True(t, f.uc.AutoSyncEnabled(ctx, owner))
}

func TestHandleCallbackRejectsUntrustedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	forged, err := signState([]byte("other-secret"), owner, "/settings", f.now, 10*time.Minute)
	require.NoError(t, err)

	_, err = f.uc.AuthURL(ctx, owner, "/settings")
	require.NoError(t, err)
	valid := f.gw.lastState

	for name, state := range map[string]string{
		"forged":  forged,
		"garbage": "eyJ1c2VySWQiOiJvd25lci0xIn0=",
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.uc.HandleCallback(ctx, "code", state)
			require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))
			require.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}

	f.now = f.now.Add(11 * time.Minute)
	_, err = f.uc.HandleCallback(ctx, "code", valid)
	require.Equal(t, errutil.Unauthorized, errutil.CodeOf(err))

	require.Zero(t, f.gw.exchanges)
	settings, err := f.settings.Get(ctx, owner)
	require.NoError(t, err)
	require.Nil(t, settings)
}

func TestSafeRedirect(t *testing.T) {
	require.Equal(t, "/board", safeRedirect("/board"))
	require.Equal(t, "/settings", safeRedirect(""))
	require.Equal(t, "/settings", safeRedirect("https://evil.example.com"))
	require.Equal(t, "/settings", safeRedirect("//evil.example.com"))
	require.Equal(t, "/settings", safeRedirect("/\\evil.example.com"))
}

func TestReverseSyncUpdatesTaskWithoutPushing(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	task := f.task(t, nil)

	moved := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	got, err := f.uc.ReverseSync(context.Background(), owner, gcal.Event{
		ID:      "evt-external",
		Summary: "Call client (moved)",
		Start:   moved,
		AllDay:  true,
		TaskID:  task.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "Call client (moved)", got.Title)
	require.Empty(t, f.gw.upserts)

	stored := f.reload(t, task.ID)
	require.Equal(t, "Call client (moved)", stored.Title)
	require.True(t, stored.EventDate.Equal(moved))
	require.True(t, stored.AllDay)
	require.Equal(t, "evt-external", *stored.GoogleCalendarEventID)
	require.NotNil(t, stored.GoogleCalendarSyncedAt)
}

func TestReverseSyncIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, nil)

	_, err := f.uc.ReverseSync(context.Background(), "someone-else", gcal.Event{
		Summary: "hijack",
		Start:   f.now,
		TaskID:  task.ID,
	})
	require.Equal(t, errutil.NotFound, errutil.CodeOf(err))

	_, err = f.uc.ReverseSync(context.Background(), owner, gcal.Event{Summary: "unlinked", Start: f.now})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))
}

func TestDeleteTaskEventClearsLinkEvenOnFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	f.gw.DeleteEventFn = func(string) error { return errors.New("calendar down") }
	task := f.task(t, func(task *taskdomain.Task) {
		id := "evt-1"
		task.GoogleCalendarEventID = &id
		task.GoogleCalendarSyncStatus = taskdomain.SyncStatusSynced
	})

	err := f.uc.DeleteTaskEvent(context.Background(), owner, task)
	require.Equal(t, errutil.UpstreamFailure, errutil.CodeOf(err))
	require.Equal(t, []string{"evt-1"}, f.gw.deletes)

	stored := f.reload(t, task.ID)
	require.Nil(t, stored.GoogleCalendarEventID)
	require.Equal(t, taskdomain.SyncStatusUnsynced, stored.GoogleCalendarSyncStatus)
}

func TestDisconnectClearsTokensAndTasks(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "refresh", time.Hour)
	task := f.task(t, nil)
	ctx := context.Background()
	require.NoError(t, f.uc.SyncTask(ctx, owner, task))

	require.NoError(t, f.uc.Disconnect(ctx, owner))

	settings, err := f.settings.Get(ctx, owner)
	require.NoError(t, err)
	require.False(t, settings.GoogleCalendarEnabled)
	require.Empty(t, settings.GoogleAccessToken)
	require.Empty(t, settings.GoogleRefreshToken)
	require.Nil(t, settings.GoogleTokenExpiresAt)

	stored := f.reload(t, task.ID)
	require.Nil(t, stored.GoogleCalendarEventID)
	require.Equal(t, taskdomain.SyncStatusUnsynced, stored.GoogleCalendarSyncStatus)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := "Mars/Olympus"
	_, err := f.uc.UpdateSettings(ctx, owner, SettingsUpdateRequest{Timezone: &bad})
	require.Equal(t, errutil.BadRequest, errutil.CodeOf(err))

	tz := "Europe/Berlin"
	cal := "work@example.com"
	off := false
	got, err := f.uc.UpdateSettings(ctx, owner, SettingsUpdateRequest{Timezone: &tz, CalendarID: &cal, SyncEnabled: &off})
	require.NoError(t, err)
	require.Equal(t, "work@example.com", got.CalendarID())
	require.Equal(t, "Europe/Berlin", f.uc.Location(ctx, owner).String())

	defaults, err := f.uc.GetSettings(ctx, "new-user")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultCalendarID, defaults.CalendarID())
	require.Equal(t, "America/Chicago", defaults.Timezone)
}
