package repository

import (
	"context"
	"errors"
	"time"

	"cyra-kanban/internal/activity/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	List(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Note, error)
	// SetRead returns domain.ErrNoteNotFound when no note of userID matches.
	SetRead(ctx context.Context, userID, id string, read bool) (*domain.Note, error)
}

type LogRepository interface {
	// Append stores entry and trims the owner's trail to keep entries.
	Append(ctx context.Context, entry *domain.LogEntry, keep int) error
	// Recent returns up to limit entries newer than since, oldest first.
	Recent(ctx context.Context, userID string, since time.Time, limit int) ([]*domain.LogEntry, error)
}

type StatusRepository interface {
	// Get returns (nil, nil) when nothing was reported yet.
	Get(ctx context.Context, userID string) (*domain.AgentStatus, error)
	Save(ctx context.Context, status *domain.AgentStatus) error
}

type noteRepository struct{ db *gorm.DB }

func NewNoteRepository(db *gorm.DB) NoteRepository { return &noteRepository{db: db} }

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	note.ID = uuid.New().String()
	note.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *noteRepository) List(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Note, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var notes []*domain.Note
	if err := q.Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *noteRepository) SetRead(ctx context.Context, userID, id string, read bool) (*domain.Note, error) {
	res := r.db.WithContext(ctx).Model(&domain.Note{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", read)
	if res.Error != nil {
		return nil, res.Error
	}

	var note domain.Note
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

const pruneBatch = 1000

type logRepository struct{ db *gorm.DB }

func NewLogRepository(db *gorm.DB) LogRepository { return &logRepository{db: db} }

func (r *logRepository) Append(ctx context.Context, entry *domain.LogEntry, keep int) error {
	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if keep <= 0 {
			return nil
		}
		var stale []string
		if err := tx.Model(&domain.LogEntry{}).
			Where("user_id = ?", entry.UserID).
			Order("created_at DESC").
			Offset(keep).
			Limit(pruneBatch).
			Pluck("id", &stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		return tx.Where("id IN ?", stale).Delete(&domain.LogEntry{}).Error
	})
}

func (r *logRepository) Recent(ctx context.Context, userID string, since time.Time, limit int) ([]*domain.LogEntry, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at > ?", since.UTC())
	}
	var logs []*domain.LogEntry
	if err := q.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

type statusRepository struct{ db *gorm.DB }

func NewStatusRepository(db *gorm.DB) StatusRepository { return &statusRepository{db: db} }

func (r *statusRepository) Get(ctx context.Context, userID string) (*domain.AgentStatus, error) {
	var status domain.AgentStatus
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

func (r *statusRepository) Save(ctx context.Context, status *domain.AgentStatus) error {
	status.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "current_task", "updated_at"}),
	}).Create(status).Error
}
