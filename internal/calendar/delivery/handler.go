package delivery

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cyra-kanban/internal/calendar/usecase"
	"cyra-kanban/pkg/errutil"
	"cyra-kanban/pkg/gcal"
	"cyra-kanban/pkg/timeutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CalendarHandler struct {
	calendarUsecase usecase.CalendarUsecase
	appURL          string
}

func NewCalendarHandler(calendarUsecase usecase.CalendarUsecase, appURL string) *CalendarHandler {
	return &CalendarHandler{
		calendarUsecase: calendarUsecase,
		appURL:          strings.TrimRight(appURL, "/"),
	}
}

// RegisterRoutes mounts the session-protected calendar endpoints.
func (h *CalendarHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/google/auth", h.GetAuthURL)
	rg.POST("/sync/task", h.SyncTask)
	rg.POST("/sync/event", h.SyncEvent)
	rg.GET("/calendar/google/events", h.ListEvents)
	rg.GET("/calendar/google/calendars", h.ListCalendars)
}

// RegisterPublicRoutes mounts the OAuth redirect target, which Google calls without a session.
func (h *CalendarHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/callback", h.Callback)
}

// GET /api/google/auth
func (h *CalendarHandler) GetAuthURL(c *gin.Context) {
	redirect := c.DefaultQuery("redirect", "/settings")
	url, err := h.calendarUsecase.AuthURL(c.Request.Context(), c.GetString("userID"), redirect)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GET /api/auth/google/callback
func (h *CalendarHandler) Callback(c *gin.Context) {
	if oauthErr := c.Query("error"); oauthErr != "" {
		zap.L().Warn("[CalendarSync] Google OAuth error", zap.String("error", oauthErr))
		h.redirect(c, "/settings", "error=google_auth_failed")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirect(c, "/settings", "error=no_code")
		return
	}

	path, err := h.calendarUsecase.HandleCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		zap.L().Warn("[CalendarSync] OAuth callback failed", zap.Error(err))
		switch errutil.CodeOf(err) {
		case errutil.Unauthorized:
			h.redirect(c, "/settings", "error=invalid_state")
		case errutil.UpstreamFailure:
			h.redirect(c, "/settings", "error=token_exchange_failed")
		default:
			h.redirect(c, "/settings", "error=callback_failed")
		}
		return
	}
	h.redirect(c, path, "success=connected")
}

func (h *CalendarHandler) redirect(c *gin.Context, path, query string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	c.Redirect(http.StatusFound, h.appURL+path+sep+query)
}

type syncTaskRequest struct {
	TaskID string `json:"taskId" binding:"required"`
	Action string `json:"action"`
}

// POST /api/sync/task
func (h *CalendarHandler) SyncTask(c *gin.Context) {
	var req syncTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID required"})
		return
	}

	ctx := c.Request.Context()
	userID := c.GetString("userID")

	switch req.Action {
	case "delete":
		if _, err := h.calendarUsecase.DeleteTaskEventByID(ctx, userID, req.TaskID); err != nil {
			errutil.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "action": "deleted"})
	case "", "sync":
		task, err := h.calendarUsecase.SyncTaskByID(ctx, userID, req.TaskID)
		if err != nil {
			errutil.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "eventId": task.GoogleCalendarEventID, "task": task})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action: " + req.Action})
	}
}

// eventTime accepts a plain date or timestamp string as well as the calendar
// {date | dateTime} object.
type eventTime struct {
	Date     string `json:"date"`
	DateTime string `json:"dateTime"`
}

func (t *eventTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.DateTime = s
		return nil
	}
	type plain eventTime
	return json.Unmarshal(data, (*plain)(t))
}

func (t eventTime) raw() string {
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

type syncEventRequest struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	AllDay      bool      `json:"all_day"`
	TimeZone    string    `json:"time_zone"`
	TaskID      string    `json:"task_id"`
	Status      string    `json:"status"`
}

// toEvent parses start and end. Offset-less times are read in the event's zone.
func (r syncEventRequest) toEvent() (gcal.Event, error) {
	ev := gcal.Event{
		ID:          r.ID,
		Summary:     r.Summary,
		Description: r.Description,
		AllDay:      r.AllDay,
		TimeZone:    r.TimeZone,
		TaskID:      r.TaskID,
		Status:      r.Status,
	}
	loc := timeutil.LoadLocation(r.TimeZone, "UTC")

	if raw := r.Start.raw(); raw != "" {
		start, allDay, err := timeutil.ParseEventDate(raw, loc)
		if err != nil {
			return gcal.Event{}, err
		}
		ev.Start = start
		ev.AllDay = ev.AllDay || allDay
	}
	if raw := r.End.raw(); raw != "" {
		end, _, err := timeutil.ParseEventDate(raw, loc)
		if err != nil {
			return gcal.Event{}, err
		}
		ev.End = end
	}
	return ev, nil
}

// POST /api/sync/event
func (h *CalendarHandler) SyncEvent(c *gin.Context) {
	var req syncEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event date"})
		return
	}

	task, err := h.calendarUsecase.ReverseSync(c.Request.Context(), c.GetString("userID"), ev)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

type googleEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	IsAllDay    bool   `json:"isAllDay"`
	TaskID      string `json:"taskId,omitempty"`
	HTMLLink    string `json:"htmlLink,omitempty"`
	Source      string `json:"source"`
}

func toGoogleEvent(ev gcal.Event) googleEvent {
	out := googleEvent{
		ID:          ev.ID,
		Title:       ev.Summary,
		Description: ev.Description,
		IsAllDay:    ev.AllDay,
		TaskID:      ev.TaskID,
		HTMLLink:    ev.HTMLLink,
		Source:      "google",
	}
	if out.Title == "" {
		out.Title = "(No title)"
	}
	if ev.AllDay {
		out.Start = timeutil.FormatDate(ev.Start)
		out.End = timeutil.FormatDate(ev.End)
	} else {
		out.Start = ev.Start.Format(time.RFC3339)
		out.End = ev.End.Format(time.RFC3339)
	}
	return out
}

// GET /api/calendar/google/events
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	rawMin, rawMax := c.Query("timeMin"), c.Query("timeMax")
	if rawMin == "" || rawMax == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters: timeMin and timeMax"})
		return
	}
	timeMin, _, err := timeutil.ParseEventDate(rawMin, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timeMin"})
		return
	}
	timeMax, _, err := timeutil.ParseEventDate(rawMax, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timeMax"})
		return
	}

	events, err := h.calendarUsecase.ListEvents(c.Request.Context(), c.GetString("userID"), timeMin, timeMax)
	if err != nil {
		errutil.Respond(c, err)
		return
	}

	out := make([]googleEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, toGoogleEvent(ev))
	}
	c.JSON(http.StatusOK, gin.H{"events": out, "count": len(out)})
}

// GET /api/calendar/google/calendars
func (h *CalendarHandler) ListCalendars(c *gin.Context) {
	calendars, err := h.calendarUsecase.ListCalendars(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendars": calendars})
}
