package repository

import (
	"context"
	"errors"
	"time"

	"cyra-kanban/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormSubtaskRepository struct {
	db *gorm.DB
}

func NewGormSubtaskRepository(db *gorm.DB) SubtaskRepository {
	return &gormSubtaskRepository{db: db}
}

func (r *gormSubtaskRepository) Create(ctx context.Context, subtask *domain.Subtask) error {
	if subtask.ID == "" {
		subtask.ID = uuid.New().String()
	}
	now := time.Now()
	subtask.CreatedAt = now
	subtask.UpdatedAt = now
	return r.db.WithContext(ctx).Create(subtask).Error
}

func (r *gormSubtaskRepository) FindByID(ctx context.Context, userID, id string) (*domain.Subtask, error) {
	var subtask domain.Subtask
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&subtask).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subtask, nil
}

func (r *gormSubtaskRepository) ListByTask(ctx context.Context, userID, taskID string) ([]*domain.Subtask, error) {
	var subtasks []*domain.Subtask
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Order("position ASC, created_at ASC").
		Find(&subtasks).Error
	return subtasks, err
}

func (r *gormSubtaskRepository) MaxPosition(ctx context.Context, taskID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&domain.Subtask{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&max).Error
	return max, err
}

func (r *gormSubtaskRepository) Update(ctx context.Context, subtask *domain.Subtask) error {
	subtask.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(subtask).Error
}

func (r *gormSubtaskRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Subtask{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSubtaskNotFound
	}
	return nil
}
