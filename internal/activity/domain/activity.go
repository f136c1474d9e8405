package domain

import (
	"errors"
	"time"
)

// AgentState is what the automation actor reports it is doing.
type AgentState string

const (
	StateIdle     AgentState = "idle"
	StateWorking  AgentState = "working"
	StateThinking AgentState = "thinking"
)

func (s AgentState) Valid() bool {
	switch s {
	case StateIdle, StateWorking, StateThinking:
		return true
	}
	return false
}

// MaxLogsPerUser bounds the audit trail kept for one owner.
const MaxLogsPerUser = 500

var (
	ErrNoteNotFound   = errors.New("note not found")
	ErrInvalidState   = errors.New("invalid agent state")
	ErrContentMissing = errors.New("content is required")
)

// Note is a message between the human and the automation actor.
type Note struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"not null"`
	From      string    `json:"from" gorm:"column:from_user;not null;default:victor"`
	Read      bool      `json:"read" gorm:"index;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is one line of the audit trail.
type LogEntry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index:idx_logs_user_created;not null"`
	Action    string    `json:"action" gorm:"not null"`
	Details   string    `json:"details,omitempty"`
	TaskID    *string   `json:"task_id,omitempty" gorm:"index"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_logs_user_created"`
}

func (LogEntry) TableName() string {
	return "logs"
}

// AgentStatus is the last reported state of the automation actor, one row per owner.
type AgentStatus struct {
	UserID      string     `json:"user_id" gorm:"primaryKey"`
	State       AgentState `json:"state" gorm:"not null;default:idle"`
	CurrentTask *string    `json:"task"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (AgentStatus) TableName() string {
	return "agent_status"
}
