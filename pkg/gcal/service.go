// Package gcal wraps the Google Calendar v3 API and the OAuth2 flow that
// authorizes it.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	PropTaskID = "kanban_task_id"
	PropSource = "kanban_source"
	SourceName = "cyra-kanban"

	defaultMaxResults = 250
)

var ErrNoRefreshToken = errors.New("no refresh token")

// IsGone reports whether err is the API telling us the event no longer exists.
func IsGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}

// Scopes requested during the consent flow.
var Scopes = []string{
	calendar.CalendarScope,
	calendar.CalendarEventsScope,
}

// Token is the persisted OAuth credential of one user.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenUpdateFunc persists a token the client refreshed on its own.
type TokenUpdateFunc func(Token) error

// Credentials identify the calendar account a call runs as.
type Credentials struct {
	Token
	OnRefresh TokenUpdateFunc
}

// CalendarEntry is one calendar on the user's calendar list.
type CalendarEntry struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}

type Service struct {
	config *oauth2.Config
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		prevRefresh := s.current.RefreshToken
		s.current = t
		if err := s.callback(fromOAuth(t, prevRefresh)); err != nil {
			zap.L().Warn("[GoogleCalendar] Failed to persist refreshed token", zap.Error(err))
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret, redirectURL string) *Service {
	return &Service{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		},
	}
}

// AuthURL returns the consent page URL. Offline access with a forced consent prompt
// makes Google hand out a refresh token on every connect.
func (s *Service) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for tokens.
func (s *Service) ExchangeCode(ctx context.Context, code string) (Token, error) {
	t, err := s.config.Exchange(ctx, code)
	if err != nil {
		return Token{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return fromOAuth(t, ""), nil
}

// RefreshAccessToken obtains a new access token for refreshToken.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (Token, error) {
	if refreshToken == "" {
		return Token{}, ErrNoRefreshToken
	}
	t, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return Token{}, fmt.Errorf("refresh access token: %w", err)
	}
	return fromOAuth(t, refreshToken), nil
}

func fromOAuth(t *oauth2.Token, fallbackRefresh string) Token {
	out := Token{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, Expiry: t.Expiry}
	if out.RefreshToken == "" {
		out.RefreshToken = fallbackRefresh
	}
	return out
}

// calendarService builds an authorized client for creds.
func (s *Service) calendarService(ctx context.Context, creds Credentials) (*calendar.Service, error) {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       creds.Expiry,
	}

	wrapped := &notifyTokenSource{
		src:      s.config.TokenSource(ctx, token),
		current:  token,
		callback: creds.OnRefresh,
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, wrapped)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

// UpsertEvent patches ev in place when it carries an id, inserts it otherwise, and
// returns the stored event id.
func (s *Service) UpsertEvent(ctx context.Context, creds Credentials, calendarID string, ev Event) (string, error) {
	srv, err := s.calendarService(ctx, creds)
	if err != nil {
		return "", err
	}

	payload := toCalendarEvent(ev)
	var saved *calendar.Event
	if ev.ID != "" {
		if len(payload.Recurrence) == 0 {
			payload.NullFields = append(payload.NullFields, "Recurrence")
		}
		saved, err = srv.Events.Patch(calendarID, ev.ID, payload).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update calendar event: %w", err)
		}
	} else {
		saved, err = srv.Events.Insert(calendarID, payload).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("create calendar event: %w", err)
		}
	}
	return saved.Id, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, creds Credentials, calendarID, eventID string) error {
	srv, err := s.calendarService(ctx, creds)
	if err != nil {
		return err
	}
	if err := srv.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// ListEvents returns single events (recurrences expanded by Google) in [timeMin, timeMax).
func (s *Service) ListEvents(ctx context.Context, creds Credentials, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	srv, err := s.calendarService(ctx, creds)
	if err != nil {
		return nil, err
	}

	return listEvents(ctx, srv, calendarID, timeMin, timeMax)
}

func listEvents(ctx context.Context, srv *calendar.Service, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	events := make([]Event, 0)
	err := srv.Events.List(calendarID).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(defaultMaxResults).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				ev, err := FromCalendarEvent(item)
				if err != nil {
					zap.L().Warn("[GoogleCalendar] Skipping event with unreadable start", zap.String("event_id", item.Id), zap.Error(err))
					continue
				}
				events = append(events, ev)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// ListCalendars returns the user's calendar list.
func (s *Service) ListCalendars(ctx context.Context, creds Credentials) ([]CalendarEntry, error) {
	srv, err := s.calendarService(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	out := make([]CalendarEntry, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, CalendarEntry{ID: item.Id, Summary: item.Summary, Primary: item.Primary})
	}
	return out, nil
}
