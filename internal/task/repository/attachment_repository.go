package repository

import (
	"context"
	"errors"
	"time"

	"cyra-kanban/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormAttachmentRepository struct {
	db *gorm.DB
}

func NewGormAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &gormAttachmentRepository{db: db}
}

func (r *gormAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.New().String()
	}
	attachment.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *gormAttachmentRepository) FindByID(ctx context.Context, userID, id string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attachment, nil
}

func (r *gormAttachmentRepository) ListByTask(ctx context.Context, userID, taskID string) ([]*domain.Attachment, error) {
	var attachments []*domain.Attachment
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Order("created_at DESC").
		Find(&attachments).Error
	return attachments, err
}

func (r *gormAttachmentRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Attachment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}
