package domain

import (
	"errors"
	"time"
)

const DefaultCalendarID = "primary"

var (
	ErrCalendarNotConnected = errors.New("google calendar not connected")
	ErrTokenExpired         = errors.New("google calendar token expired")
	ErrInvalidState         = errors.New("invalid oauth state")
	ErrEventNotLinked       = errors.New("event is not linked to a task")
)

// UserSettings holds the calendar integration of one user.
type UserSettings struct {
	UserID string `json:"user_id" gorm:"primaryKey"`

	GoogleCalendarEnabled     bool   `json:"google_calendar_enabled" gorm:"default:false"`
	GoogleCalendarID          string `json:"google_calendar_id" gorm:"default:primary"`
	GoogleCalendarSyncEnabled bool   `json:"google_calendar_sync_enabled" gorm:"default:false"`
	Timezone                  string `json:"timezone,omitempty"`

	GoogleAccessToken    string     `json:"-"`
	GoogleRefreshToken   string     `json:"-"`
	GoogleTokenExpiresAt *time.Time `json:"-"`

	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}

// Connected reports whether the user linked an account that can still be used.
func (s *UserSettings) Connected() bool {
	return s != nil && s.GoogleCalendarEnabled && (s.GoogleAccessToken != "" || s.GoogleRefreshToken != "")
}

// AutoSync reports whether card changes should be pushed without an explicit request.
func (s *UserSettings) AutoSync() bool {
	return s.Connected() && s.GoogleCalendarSyncEnabled
}

func (s *UserSettings) CalendarID() string {
	if s == nil || s.GoogleCalendarID == "" {
		return DefaultCalendarID
	}
	return s.GoogleCalendarID
}
