package repository

import (
	"context"
	"time"

	"worksync-backend/internal/reminder/domain"
)

type ReminderRepository interface {
	Create(ctx context.Context, reminder *domain.Reminder) error
	// FindByID returns nil, nil when the reminder does not exist
	FindByID(ctx context.Context, id string) (*domain.Reminder, error)
	// FindByOwner returns the owner's reminders, soonest first
	FindByOwner(ctx context.Context, ownerID string) ([]*domain.Reminder, error)
	Update(ctx context.Context, reminder *domain.Reminder) error
	Delete(ctx context.Context, id string) error

	// FindDue returns unsent reminders whose date is not after now
	FindDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error)
	MarkNotified(ctx context.Context, id string, at time.Time) error
}
