package repository

import (
	"context"
	"errors"
	"time"

	"cyra-kanban/internal/calendar/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	// Get returns (nil, nil) when the user never saved settings.
	Get(ctx context.Context, userID string) (*domain.UserSettings, error)
	// Save inserts or replaces the whole row.
	Save(ctx context.Context, settings *domain.UserSettings) error
	UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, userID string) (*domain.UserSettings, error) {
	var s domain.UserSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *domain.UserSettings) error {
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now
	if settings.GoogleCalendarID == "" {
		settings.GoogleCalendarID = domain.DefaultCalendarID
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(settings).Error
}

func (r *settingsRepository) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.UserSettings{}).
		Where("user_id = ?", userID).
		Updates(fields).Error
}
