package domain

import (
	"errors"
	"time"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrProductNotFound = errors.New("product not found")
	ErrNameRequired    = errors.New("name is required")
)

type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientPaused   ClientStatus = "paused"
	ClientArchived ClientStatus = "archived"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientPaused, ClientArchived:
		return true
	}
	return false
}

// Client is a customer that cards can be filed under.
type Client struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	UserID         string       `json:"user_id" gorm:"index;not null"`
	Name           string       `json:"name" gorm:"not null"`
	ProjectKey     string       `json:"project_key,omitempty"`
	Status         ClientStatus `json:"status" gorm:"default:active"`
	Description    string       `json:"description,omitempty"`
	ContactName    string       `json:"contact_name,omitempty"`
	ContactEmail   string       `json:"contact_email,omitempty"`
	DriveFolderURL string       `json:"drive_folder_url,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type Product struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
