package usecase

import (
	"context"
	"time"

	"worksync-backend/internal/reminder/domain"
)

// ReminderUsecase manages a user's own reminders
type ReminderUsecase interface {
	Create(ctx context.Context, userID string, req ReminderRequest) (*domain.Reminder, error)
	List(ctx context.Context, userID string) ([]*domain.Reminder, error)
	Get(ctx context.Context, userID, id string) (*domain.Reminder, error)
	Update(ctx context.Context, userID, id string, req ReminderRequest) (*domain.Reminder, error)
	Delete(ctx context.Context, userID, id string) error
}

type ReminderRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	ReminderDate time.Time `json:"reminder_date" binding:"required"`
}
