package usecase

import (
	"context"
	"strings"

	"worksync-backend/internal/reminder/domain"
	"worksync-backend/internal/reminder/repository"
	"worksync-backend/pkg/apperror"
)

type reminderUsecase struct {
	repo repository.ReminderRepository
}

func NewReminderUsecase(repo repository.ReminderRepository) ReminderUsecase {
	return &reminderUsecase{repo: repo}
}

func (u *reminderUsecase) Create(ctx context.Context, userID string, req ReminderRequest) (*domain.Reminder, error) {
	reminder := &domain.Reminder{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		ReminderDate: req.ReminderDate,
		OwnerID:      userID,
	}
	if err := reminder.Validate(); err != nil {
		return nil, apperror.New(apperror.KindInvalid, "reminder.create", err)
	}
	if err := u.repo.Create(ctx, reminder); err != nil {
		return nil, apperror.Classify("reminder.create", err)
	}
	return reminder, nil
}

func (u *reminderUsecase) List(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	reminders, err := u.repo.FindByOwner(ctx, userID)
	if err != nil {
		return nil, apperror.Classify("reminder.list", err)
	}
	return reminders, nil
}

func (u *reminderUsecase) Get(ctx context.Context, userID, id string) (*domain.Reminder, error) {
	reminder, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Classify("reminder.get", err)
	}
	// Someone else's reminder looks the same as a missing one
	if reminder == nil || reminder.OwnerID != userID {
		return nil, apperror.NotFound("reminder.get", id)
	}
	return reminder, nil
}

// Update replaces the editable fields. Moving the date re-arms the reminder.
func (u *reminderUsecase) Update(ctx context.Context, userID, id string, req ReminderRequest) (*domain.Reminder, error) {
	reminder, err := u.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !req.ReminderDate.Equal(reminder.ReminderDate) {
		reminder.NotifiedAt = nil
	}
	reminder.Title = strings.TrimSpace(req.Title)
	reminder.Description = req.Description
	reminder.ReminderDate = req.ReminderDate
	if err := reminder.Validate(); err != nil {
		return nil, apperror.New(apperror.KindInvalid, "reminder.update", err)
	}
	if err := u.repo.Update(ctx, reminder); err != nil {
		return nil, apperror.Classify("reminder.update", err)
	}
	return reminder, nil
}

func (u *reminderUsecase) Delete(ctx context.Context, userID, id string) error {
	if _, err := u.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, id); err != nil {
		return apperror.Classify("reminder.delete", err)
	}
	return nil
}
