package repository

import (
	"context"
	"errors"
	"time"

	"worksync-backend/internal/reminder/domain"
	"worksync-backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormReminderRepository struct {
	db *gorm.DB
}

func NewGormReminderRepository(db *gorm.DB) ReminderRepository {
	return &gormReminderRepository{db: db}
}

func (r *gormReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	now := time.Now()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *gormReminderRepository) FindByID(ctx context.Context, id string) (*domain.Reminder, error) {
	var reminder domain.Reminder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reminder, nil
}

func (r *gormReminderRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("reminder_date ASC, id ASC").
		Find(&reminders).Error
	return reminders, err
}

func (r *gormReminderRepository) Update(ctx context.Context, reminder *domain.Reminder) error {
	reminder.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Reminder{}).Where("id = ?", reminder.ID).
		Select("title", "description", "reminder_date", "notified_at", "updated_at").
		Updates(reminder)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("reminder.update", reminder.ID)
	}
	return nil
}

func (r *gormReminderRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.Reminder{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("reminder.delete", id)
	}
	return nil
}

func (r *gormReminderRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	var reminders []*domain.Reminder
	err := r.db.WithContext(ctx).
		Where("notified_at IS NULL AND reminder_date <= ?", now).
		Order("reminder_date ASC").
		Limit(500).
		Find(&reminders).Error
	return reminders, err
}

func (r *gormReminderRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Reminder{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"notified_at": at,
			"updated_at":  time.Now(),
		}).Error
}
