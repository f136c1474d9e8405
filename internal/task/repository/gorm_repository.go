package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyra-kanban/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

// columnOrder sorts cards by board stage rather than alphabetically.
var columnOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE column_id")
	for i, c := range domain.Columns {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", c, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(domain.Columns))
	return b.String()
}()

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) FindByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	return r.find(r.db.WithContext(ctx), userID, id)
}

func (r *gormTaskRepository) FindByIDWithChildren(ctx context.Context, userID, id string) (*domain.Task, error) {
	q := r.db.WithContext(ctx).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") })
	return r.find(q, userID, id)
}

func (r *gormTaskRepository) find(q *gorm.DB, userID, id string) (*domain.Task, error) {
	var task domain.Task
	err := q.Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) List(ctx context.Context, userID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task

	query := r.db.WithContext(ctx).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Where("user_id = ?", userID)

	switch {
	case filter.ArchivedOnly:
		query = query.Where("archived = ?", true)
	case !filter.IncludeArchived:
		query = query.Where("archived = ?", false)
	}
	if filter.Column != nil {
		query = query.Where("column_id = ?", *filter.Column)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	err := query.Order(columnOrder).Order("position ASC").Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) ListScheduled(ctx context.Context, userID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND archived = ? AND event_date IS NOT NULL", userID, false).
		Order("event_date ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Omit("Subtasks", "Attachments").Save(task).Error
}

func (r *gormTaskRepository) UpdateFields(ctx context.Context, userID, id string, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *gormTaskRepository) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? AND user_id = ?", id, userID).Delete(&domain.Subtask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ? AND user_id = ?", id, userID).Delete(&domain.Attachment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTaskNotFound
		}
		return nil
	})
}

func (r *gormTaskRepository) MaxPosition(ctx context.Context, userID, column string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("user_id = ? AND column_id = ?", userID, column).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	return max, err
}

func (r *gormTaskRepository) ArchiveCompletedBefore(ctx context.Context, userID string, cutoff, now time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("column_id = ? AND archived = ?", domain.ColumnDone, false).
		Where("COALESCE(completed_at, updated_at) < ?", cutoff)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	res := query.Updates(map[string]interface{}{
		"archived":    true,
		"archived_at": now,
	})
	return res.RowsAffected, res.Error
}

func (r *gormTaskRepository) ClearCalendarSync(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"google_calendar_event_id":    nil,
			"google_calendar_sync_status": domain.SyncStatusUnsynced,
			"google_calendar_synced_at":   nil,
			"google_calendar_error":       nil,
		}).Error
}
