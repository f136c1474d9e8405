package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"cyra-kanban/internal/calendar/domain"
	"cyra-kanban/internal/calendar/repository"
	"cyra-kanban/internal/notification"
	"cyra-kanban/internal/recurrence"
	taskdomain "cyra-kanban/internal/task/domain"
	taskrepo "cyra-kanban/internal/task/repository"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/errutil"
	"cyra-kanban/pkg/gcal"
	"cyra-kanban/pkg/timeutil"

	"go.uber.org/zap"
)

const (
	refreshSkew   = 5 * time.Minute
	tokenLifetime = time.Hour
	eventDuration = time.Hour
)

var priorityColors = map[taskdomain.Priority]string{
	taskdomain.PriorityHigh:   "11",
	taskdomain.PriorityMedium: "5",
	taskdomain.PriorityLow:    "2",
}

type calendarUsecase struct {
	settingsRepo repository.SettingsRepository
	taskRepo     taskrepo.TaskRepository
	gateway      Gateway
	config       *config.Config
	publisher    notification.Publisher
	now          func() time.Time
}

type Option func(*calendarUsecase)

func WithPublisher(p notification.Publisher) Option {
	return func(u *calendarUsecase) {
		if p != nil {
			u.publisher = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *calendarUsecase) { u.now = now }
}

// NewCalendarUsecase builds the sync adapter. gateway may be nil when no OAuth client
// is configured; every call that needs Google then fails with an internal error.
func NewCalendarUsecase(settingsRepo repository.SettingsRepository, taskRepo taskrepo.TaskRepository, gateway Gateway, cfg *config.Config, opts ...Option) CalendarUsecase {
	u := &calendarUsecase{
		settingsRepo: settingsRepo,
		taskRepo:     taskRepo,
		gateway:      gateway,
		config:       cfg,
		publisher:    notification.NopPublisher{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *calendarUsecase) AuthURL(ctx context.Context, userID, redirect string) (string, error) {
	if u.gateway == nil {
		return "", errNotConfigured()
	}
	state, err := signState([]byte(u.config.OAuthStateSecret), userID, redirect, u.now(), u.stateTTL())
	if err != nil {
		return "", errutil.NewInternal("Failed to sign OAuth state", errutil.WithErr(err))
	}
	return u.gateway.AuthURL(state), nil
}

func (u *calendarUsecase) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if u.gateway == nil {
		return "", errNotConfigured()
	}
	claims, err := parseState([]byte(u.config.OAuthStateSecret), state, u.now())
	if err != nil {
		return "", errutil.NewUnauthorized("Invalid OAuth state", errutil.WithErr(errors.Join(domain.ErrInvalidState, err)))
	}
	if code == "" {
		return "", errutil.NewBadRequest("Missing authorization code")
	}

	log := zap.L().With(zap.String("user_id", claims.Subject))

	tok, err := u.gateway.ExchangeCode(ctx, code)
	if err != nil {
		return "", errutil.NewUpstream("Token exchange failed", errutil.WithErr(err))
	}
	if tok.AccessToken == "" {
		return "", errutil.NewUpstream("No access token in response")
	}
	if tok.RefreshToken == "" {
		log.Info("[CalendarSync] No refresh token returned, keeping the stored one")
	}

	settings, err := u.settingsRepo.Get(ctx, claims.Subject)
	if err != nil {
		return "", errutil.NewInternal("Failed to load settings", errutil.WithErr(err))
	}
	if settings == nil {
		settings = &domain.UserSettings{UserID: claims.Subject}
	}

	calendarID := domain.DefaultCalendarID
	calendars, err := u.gateway.ListCalendars(ctx, gcal.Credentials{Token: tok})
	if err != nil {
		log.Warn("[CalendarSync] Could not list calendars, using primary", zap.Error(err))
	} else if picked := pickCalendar(calendars); picked != "" {
		calendarID = picked
	}

	now := u.now().UTC()
	expiry := tok.Expiry.UTC()
	if tok.Expiry.IsZero() {
		expiry = now.Add(tokenLifetime)
	}

	settings.GoogleCalendarEnabled = true
	settings.GoogleCalendarSyncEnabled = true
	settings.GoogleCalendarID = calendarID
	settings.GoogleAccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		settings.GoogleRefreshToken = tok.RefreshToken
	}
	settings.GoogleTokenExpiresAt = &expiry
	settings.LastSyncAt = &now

	if err := u.settingsRepo.Save(ctx, settings); err != nil {
		return "", errutil.NewInternal("Failed to store tokens", errutil.WithErr(err))
	}

	log.Info("[CalendarSync] Google Calendar connected", zap.String("calendar_id", calendarID))
	return safeRedirect(claims.Redirect), nil
}

func pickCalendar(calendars []gcal.CalendarEntry) string {
	for _, c := range calendars {
		if c.Primary {
			return c.ID
		}
	}
	if len(calendars) > 0 {
		return calendars[0].ID
	}
	return ""
}

func (u *calendarUsecase) EnsureAccessToken(ctx context.Context, settings *domain.UserSettings, now time.Time) (gcal.Token, error) {
	if !settings.Connected() {
		return gcal.Token{}, errNotConnected()
	}

	current := gcal.Token{AccessToken: settings.GoogleAccessToken, RefreshToken: settings.GoogleRefreshToken}
	if settings.GoogleTokenExpiresAt != nil {
		current.Expiry = *settings.GoogleTokenExpiresAt
	}
	if current.AccessToken != "" && (settings.GoogleTokenExpiresAt == nil || settings.GoogleTokenExpiresAt.Sub(now) > refreshSkew) {
		return current, nil
	}

	if current.RefreshToken == "" {
		return gcal.Token{}, errutil.NewUnauthorized("Token expired and no refresh token available", errutil.WithErr(domain.ErrTokenExpired))
	}
	if u.gateway == nil {
		return gcal.Token{}, errNotConfigured()
	}

	fresh, err := u.gateway.RefreshAccessToken(ctx, current.RefreshToken)
	if err != nil {
		zap.L().Warn("[CalendarSync] Token refresh failed", zap.String("user_id", settings.UserID), zap.Error(err))
		return gcal.Token{}, errutil.NewUpstream("Token refresh failed", errutil.WithErr(errors.Join(domain.ErrTokenExpired, err)))
	}

	expiry := now.Add(tokenLifetime).UTC()
	fields := map[string]interface{}{
		"google_access_token":     fresh.AccessToken,
		"google_token_expires_at": expiry,
	}
	if fresh.RefreshToken != "" && fresh.RefreshToken != current.RefreshToken {
		fields["google_refresh_token"] = fresh.RefreshToken
		settings.GoogleRefreshToken = fresh.RefreshToken
	}
	if err := u.settingsRepo.UpdateFields(ctx, settings.UserID, fields); err != nil {
		return gcal.Token{}, errutil.NewInternal("Failed to store refreshed token", errutil.WithErr(err))
	}

	settings.GoogleAccessToken = fresh.AccessToken
	settings.GoogleTokenExpiresAt = &expiry
	return gcal.Token{AccessToken: fresh.AccessToken, RefreshToken: settings.GoogleRefreshToken, Expiry: expiry}, nil
}

// credentials loads the settings of userID with an access token ready to use.
func (u *calendarUsecase) credentials(ctx context.Context, userID string) (*domain.UserSettings, gcal.Credentials, error) {
	if u.gateway == nil {
		return nil, gcal.Credentials{}, errNotConfigured()
	}
	settings, err := u.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, gcal.Credentials{}, errutil.NewInternal("Failed to load settings", errutil.WithErr(err))
	}
	tok, err := u.EnsureAccessToken(ctx, settings, u.now())
	if err != nil {
		return nil, gcal.Credentials{}, err
	}

	creds := gcal.Credentials{
		Token: tok,
		OnRefresh: func(t gcal.Token) error {
			fields := map[string]interface{}{
				"google_access_token":     t.AccessToken,
				"google_token_expires_at": t.Expiry.UTC(),
			}
			if t.RefreshToken != "" {
				fields["google_refresh_token"] = t.RefreshToken
			}
			return u.settingsRepo.UpdateFields(ctx, userID, fields)
		},
	}
	return settings, creds, nil
}

func (u *calendarUsecase) SyncTask(ctx context.Context, userID string, task *taskdomain.Task) error {
	if task.EventDate == nil {
		return errutil.NewBadRequest("Task has no due date", errutil.WithErr(taskdomain.ErrMissingDueDate))
	}

	settings, creds, err := u.credentials(ctx, userID)
	if err != nil {
		// Not being connected is not a sync attempt; a dead token is.
		if errors.Is(err, domain.ErrTokenExpired) {
			u.recordSync(ctx, userID, task, "", err)
		}
		return err
	}

	ev := buildEvent(task, u.locationOf(settings))
	eventID, err := u.gateway.UpsertEvent(ctx, creds, settings.CalendarID(), ev)
	if err != nil && ev.ID != "" && gcal.IsGone(err) {
		zap.L().Info("[CalendarSync] Event removed externally, creating a new one",
			zap.String("task_id", task.ID), zap.String("event_id", ev.ID))
		ev.ID = ""
		eventID, err = u.gateway.UpsertEvent(ctx, creds, settings.CalendarID(), ev)
	}
	if err != nil {
		syncErr := errutil.NewUpstream("Calendar sync failed", errutil.WithErr(err))
		u.recordSync(ctx, userID, task, "", syncErr)
		return syncErr
	}

	u.recordSync(ctx, userID, task, eventID, nil)
	if err := u.settingsRepo.UpdateFields(ctx, userID, map[string]interface{}{"last_sync_at": u.now().UTC()}); err != nil {
		zap.L().Warn("[CalendarSync] Failed to stamp last sync", zap.String("user_id", userID), zap.Error(err))
	}
	u.publish(ctx, userID, task.ID)
	return nil
}

// recordSync writes the outcome of a sync attempt onto the card, successful or not.
func (u *calendarUsecase) recordSync(ctx context.Context, userID string, task *taskdomain.Task, eventID string, syncErr error) {
	now := u.now().UTC()
	var fields map[string]interface{}

	if syncErr == nil {
		task.GoogleCalendarEventID = &eventID
		task.GoogleCalendarSyncStatus = taskdomain.SyncStatusSynced
		task.GoogleCalendarSyncedAt = &now
		task.GoogleCalendarError = nil
		fields = map[string]interface{}{
			"google_calendar_event_id":    eventID,
			"google_calendar_sync_status": taskdomain.SyncStatusSynced,
			"google_calendar_synced_at":   now,
			"google_calendar_error":       nil,
		}
	} else {
		msg := errorDetail(syncErr)
		task.GoogleCalendarSyncStatus = taskdomain.SyncStatusError
		task.GoogleCalendarError = &msg
		fields = map[string]interface{}{
			"google_calendar_sync_status": taskdomain.SyncStatusError,
			"google_calendar_error":       msg,
		}
		zap.L().Warn("[CalendarSync] Sync failed", zap.String("task_id", task.ID), zap.Error(syncErr))
	}

	if err := u.taskRepo.UpdateFields(ctx, userID, task.ID, fields); err != nil {
		zap.L().Error("[CalendarSync] Failed to record sync status", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (u *calendarUsecase) SyncTaskByID(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return task, u.SyncTask(ctx, userID, task)
}

func (u *calendarUsecase) DeleteTaskEvent(ctx context.Context, userID string, task *taskdomain.Task) error {
	if task.GoogleCalendarEventID == nil || *task.GoogleCalendarEventID == "" {
		return nil
	}
	eventID := *task.GoogleCalendarEventID

	settings, creds, err := u.credentials(ctx, userID)
	if err == nil {
		err = u.gateway.DeleteEvent(ctx, creds, settings.CalendarID(), eventID)
		if err != nil && gcal.IsGone(err) {
			err = nil
		}
		if err != nil {
			err = errutil.NewUpstream("Failed to delete calendar event", errutil.WithErr(err))
		}
	}
	if err != nil {
		zap.L().Warn("[CalendarSync] Failed to delete calendar event",
			zap.String("task_id", task.ID), zap.String("event_id", eventID), zap.Error(err))
	}

	u.clearSync(ctx, userID, task)
	return err
}

func (u *calendarUsecase) clearSync(ctx context.Context, userID string, task *taskdomain.Task) {
	task.GoogleCalendarEventID = nil
	task.GoogleCalendarSyncStatus = taskdomain.SyncStatusUnsynced
	task.GoogleCalendarSyncedAt = nil
	task.GoogleCalendarError = nil
	fields := map[string]interface{}{
		"google_calendar_event_id":    nil,
		"google_calendar_sync_status": taskdomain.SyncStatusUnsynced,
		"google_calendar_synced_at":   nil,
		"google_calendar_error":       nil,
	}
	if err := u.taskRepo.UpdateFields(ctx, userID, task.ID, fields); err != nil && !errors.Is(err, taskdomain.ErrTaskNotFound) {
		zap.L().Error("[CalendarSync] Failed to clear sync fields", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (u *calendarUsecase) DeleteTaskEventByID(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	task, err := u.findTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	// The link is cleared even when Google could not be reached.
	_ = u.DeleteTaskEvent(ctx, userID, task)
	return task, nil
}

func (u *calendarUsecase) ReverseSync(ctx context.Context, userID string, event gcal.Event) (*taskdomain.Task, error) {
	if event.TaskID == "" {
		return nil, errutil.NewBadRequest("Event is not linked to a task", errutil.WithErr(domain.ErrEventNotLinked))
	}
	task, err := u.findTask(ctx, userID, event.TaskID)
	if err != nil {
		return nil, err
	}

	if event.Status == "cancelled" {
		u.clearSync(ctx, userID, task)
		u.publish(ctx, userID, task.ID)
		return task, nil
	}
	if event.Start.IsZero() {
		return nil, errutil.NewBadRequest("Event has no start date")
	}

	now := u.now().UTC()
	start := event.Start.UTC()
	fields := map[string]interface{}{
		"event_date":                  start,
		"all_day":                     event.AllDay,
		"google_calendar_sync_status": taskdomain.SyncStatusSynced,
		"google_calendar_synced_at":   now,
		"google_calendar_error":       nil,
	}
	task.EventDate = &start
	task.AllDay = event.AllDay
	task.GoogleCalendarSyncStatus = taskdomain.SyncStatusSynced
	task.GoogleCalendarSyncedAt = &now
	task.GoogleCalendarError = nil

	if event.Summary != "" {
		fields["title"] = event.Summary
		task.Title = event.Summary
	}
	if event.Description != "" {
		fields["description"] = event.Description
		task.Description = event.Description
	}
	if event.ID != "" {
		fields["google_calendar_event_id"] = event.ID
		id := event.ID
		task.GoogleCalendarEventID = &id
	}

	if err := u.taskRepo.UpdateFields(ctx, userID, task.ID, fields); err != nil {
		if errors.Is(err, taskdomain.ErrTaskNotFound) {
			return nil, errutil.NewNotFound("Task not found", errutil.WithErr(err))
		}
		return nil, errutil.NewInternal("Failed to update task", errutil.WithErr(err))
	}

	zap.L().Info("[CalendarSync] Applied calendar edit to task", zap.String("task_id", task.ID))
	u.publish(ctx, userID, task.ID)
	return task, nil
}

func (u *calendarUsecase) ListEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]gcal.Event, error) {
	if !timeMax.After(timeMin) {
		return nil, errutil.NewBadRequest("timeMax must be after timeMin")
	}
	settings, creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := u.gateway.ListEvents(ctx, creds, settings.CalendarID(), timeMin, timeMax)
	if err != nil {
		return nil, errutil.NewUpstream("Failed to fetch calendar events", errutil.WithErr(err))
	}
	return events, nil
}

func (u *calendarUsecase) ListCalendars(ctx context.Context, userID string) ([]gcal.CalendarEntry, error) {
	_, creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	calendars, err := u.gateway.ListCalendars(ctx, creds)
	if err != nil {
		return nil, errutil.NewUpstream("Failed to list calendars", errutil.WithErr(err))
	}
	return calendars, nil
}

func (u *calendarUsecase) GetSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	settings, err := u.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to get settings", errutil.WithErr(err))
	}
	if settings == nil {
		settings = &domain.UserSettings{UserID: userID, GoogleCalendarID: domain.DefaultCalendarID}
	}
	if settings.Timezone == "" {
		settings.Timezone = u.config.DefaultTimezone
	}
	return settings, nil
}

func (u *calendarUsecase) UpdateSettings(ctx context.Context, userID string, req SettingsUpdateRequest) (*domain.UserSettings, error) {
	settings, err := u.settingsRepo.Get(ctx, userID)
	if err != nil {
		return nil, errutil.NewInternal("Failed to update settings", errutil.WithErr(err))
	}
	if settings == nil {
		settings = &domain.UserSettings{UserID: userID}
	}

	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return nil, errutil.NewBadRequest("Invalid timezone: "+tz, errutil.WithErr(err))
			}
		}
		settings.Timezone = tz
	}
	if req.CalendarID != nil {
		settings.GoogleCalendarID = strings.TrimSpace(*req.CalendarID)
	}
	if req.SyncEnabled != nil {
		settings.GoogleCalendarSyncEnabled = *req.SyncEnabled
	}

	if err := u.settingsRepo.Save(ctx, settings); err != nil {
		return nil, errutil.NewInternal("Failed to update settings", errutil.WithErr(err))
	}
	return settings, nil
}

func (u *calendarUsecase) Disconnect(ctx context.Context, userID string) error {
	err := u.settingsRepo.UpdateFields(ctx, userID, map[string]interface{}{
		"google_calendar_enabled":      false,
		"google_calendar_sync_enabled": false,
		"google_access_token":          "",
		"google_refresh_token":         "",
		"google_token_expires_at":      nil,
	})
	if err != nil {
		return errutil.NewInternal("Failed to disconnect", errutil.WithErr(err))
	}
	if err := u.taskRepo.ClearCalendarSync(ctx, userID); err != nil {
		return errutil.NewInternal("Failed to clear task sync state", errutil.WithErr(err))
	}
	zap.L().Info("[CalendarSync] Google Calendar disconnected", zap.String("user_id", userID))
	return nil
}

func (u *calendarUsecase) AutoSyncEnabled(ctx context.Context, userID string) bool {
	settings, err := u.settingsRepo.Get(ctx, userID)
	if err != nil {
		zap.L().Warn("[CalendarSync] Failed to load settings", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return settings.AutoSync()
}

func (u *calendarUsecase) Location(ctx context.Context, userID string) *time.Location {
	settings, err := u.settingsRepo.Get(ctx, userID)
	if err != nil {
		zap.L().Warn("[CalendarSync] Failed to load settings", zap.String("user_id", userID), zap.Error(err))
	}
	return u.locationOf(settings)
}

func (u *calendarUsecase) locationOf(settings *domain.UserSettings) *time.Location {
	tz := ""
	if settings != nil {
		tz = settings.Timezone
	}
	return timeutil.LoadLocation(tz, u.config.DefaultTimezone)
}

func (u *calendarUsecase) findTask(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, userID, recurrence.ResolveID(taskID))
	if err != nil {
		return nil, errutil.NewInternal("Failed to load task", errutil.WithErr(err))
	}
	if task == nil {
		return nil, errutil.NewNotFound("Task not found", errutil.WithErr(taskdomain.ErrTaskNotFound))
	}
	return task, nil
}

func (u *calendarUsecase) publish(ctx context.Context, userID, taskID string) {
	u.publisher.Publish(ctx, notification.ChangeEvent{
		UserID:   userID,
		Kind:     notification.KindCalendarSynced,
		EntityID: taskID,
		Actor:    string(taskdomain.ActorFrom(ctx)),
		At:       u.now().UTC(),
	})
}

func (u *calendarUsecase) stateTTL() time.Duration {
	if u.config.OAuthStateTTL > 0 {
		return u.config.OAuthStateTTL
	}
	return 10 * time.Minute
}

// buildEvent maps a card onto a calendar event. Date-only cards become all-day events;
// timed ones last an hour in the owner's zone.
func buildEvent(task *taskdomain.Task, loc *time.Location) gcal.Event {
	ev := gcal.Event{
		Summary:     task.Title,
		Description: task.Description,
		ColorID:     priorityColors[task.Priority],
		Recurrence:  recurrence.CalendarRecurrence(task),
		TaskID:      task.ID,
	}
	if task.GoogleCalendarEventID != nil {
		ev.ID = *task.GoogleCalendarEventID
	}

	start := task.EventDate.UTC()
	if task.AllDay {
		ev.AllDay = true
		ev.Start = start
		ev.End = start.AddDate(0, 0, 1)
		return ev
	}
	ev.Start = start.In(loc)
	ev.End = ev.Start.Add(eventDuration)
	ev.TimeZone = loc.String()
	return ev
}

// errorDetail is the message stored on a card whose sync failed.
func errorDetail(err error) string {
	var be errutil.BaseError
	if errors.As(err, &be) && be.Err != nil {
		return be.Message + ": " + be.Err.Error()
	}
	return errutil.Message(err)
}

func errNotConnected() error {
	return errutil.NewBadRequest("Google Calendar not connected", errutil.WithErr(domain.ErrCalendarNotConnected))
}

func errNotConfigured() error {
	return errutil.NewInternal("Google Calendar is not configured")
}
