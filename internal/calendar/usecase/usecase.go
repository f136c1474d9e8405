package usecase

import (
	"context"
	"time"

	"cyra-kanban/internal/calendar/domain"
	taskdomain "cyra-kanban/internal/task/domain"
	"cyra-kanban/pkg/gcal"
)

// CalendarUsecase connects a user's Google Calendar and keeps events in step with cards.
type CalendarUsecase interface {
	AuthURL(ctx context.Context, userID, redirect string) (string, error)
	// HandleCallback finishes the consent flow and returns the relative path to send the
	// browser back to.
	HandleCallback(ctx context.Context, code, state string) (string, error)

	// EnsureAccessToken returns a token valid for at least five more minutes, refreshing
	// and persisting it first when needed.
	EnsureAccessToken(ctx context.Context, settings *domain.UserSettings, now time.Time) (gcal.Token, error)

	SyncTask(ctx context.Context, userID string, task *taskdomain.Task) error
	SyncTaskByID(ctx context.Context, userID, taskID string) (*taskdomain.Task, error)
	DeleteTaskEvent(ctx context.Context, userID string, task *taskdomain.Task) error
	DeleteTaskEventByID(ctx context.Context, userID, taskID string) (*taskdomain.Task, error)
	// ReverseSync copies an externally edited event back onto its card. It never pushes.
	ReverseSync(ctx context.Context, userID string, event gcal.Event) (*taskdomain.Task, error)

	ListEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]gcal.Event, error)
	ListCalendars(ctx context.Context, userID string) ([]gcal.CalendarEntry, error)

	GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error)
	UpdateSettings(ctx context.Context, userID string, req SettingsUpdateRequest) (*domain.UserSettings, error)
	Disconnect(ctx context.Context, userID string) error

	AutoSyncEnabled(ctx context.Context, userID string) bool
	Location(ctx context.Context, userID string) *time.Location
}

// Gateway is the calendar API as seen by the usecase; *gcal.Service implements it.
type Gateway interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (gcal.Token, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (gcal.Token, error)
	UpsertEvent(ctx context.Context, creds gcal.Credentials, calendarID string, ev gcal.Event) (string, error)
	DeleteEvent(ctx context.Context, creds gcal.Credentials, calendarID, eventID string) error
	ListEvents(ctx context.Context, creds gcal.Credentials, calendarID string, timeMin, timeMax time.Time) ([]gcal.Event, error)
	ListCalendars(ctx context.Context, creds gcal.Credentials) ([]gcal.CalendarEntry, error)
}

type SettingsUpdateRequest struct {
	SyncEnabled *bool   `json:"google_calendar_sync_enabled,omitempty"`
	CalendarID  *string `json:"google_calendar_id,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}
