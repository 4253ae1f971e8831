package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"worksync-backend/internal/reminder/domain"
	"worksync-backend/pkg/apperror"

	"github.com/google/uuid"
)

type memoryReminderRepository struct {
	mu        sync.RWMutex
	reminders map[string]domain.Reminder
}

func NewMemoryReminderRepository() ReminderRepository {
	return &memoryReminderRepository{reminders: make(map[string]domain.Reminder)}
}

func (r *memoryReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	reminder.CreatedAt = time.Now()
	reminder.UpdatedAt = reminder.CreatedAt
	r.reminders[reminder.ID] = *reminder
	return nil
}

func (r *memoryReminderRepository) FindByID(ctx context.Context, id string) (*domain.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return nil, nil
	}
	return &reminder, nil
}

func (r *memoryReminderRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Reminder, error) {
	return r.filter(func(rem *domain.Reminder) bool { return rem.OwnerID == ownerID }), nil
}

func (r *memoryReminderRepository) Update(ctx context.Context, reminder *domain.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.reminders[reminder.ID]
	if !ok {
		return apperror.NotFound("reminder.update", reminder.ID)
	}
	reminder.OwnerID = existing.OwnerID
	reminder.CreatedAt = existing.CreatedAt
	reminder.UpdatedAt = time.Now()
	r.reminders[reminder.ID] = *reminder
	return nil
}

func (r *memoryReminderRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminders[id]; !ok {
		return apperror.NotFound("reminder.delete", id)
	}
	delete(r.reminders, id)
	return nil
}

func (r *memoryReminderRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	return r.filter(func(rem *domain.Reminder) bool { return rem.Due(now) }), nil
}

func (r *memoryReminderRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return nil
	}
	reminder.NotifiedAt = &at
	reminder.UpdatedAt = time.Now()
	r.reminders[id] = reminder
	return nil
}

func (r *memoryReminderRepository) filter(keep func(*domain.Reminder) bool) []*domain.Reminder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Reminder{}
	for _, reminder := range r.reminders {
		reminder := reminder
		if keep(&reminder) {
			out = append(out, &reminder)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReminderDate.Equal(out[j].ReminderDate) {
			return out[i].ReminderDate.Before(out[j].ReminderDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
