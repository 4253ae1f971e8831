package usecase

import (
	"context"
	"testing"
	"time"

	"worksync-backend/internal/reminder/repository"
	"worksync-backend/pkg/apperror"
)

func TestReminderCRUDIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	uc := NewReminderUsecase(repository.NewMemoryReminderRepository())
	at := time.Now().Add(time.Hour)

	created, err := uc.Create(ctx, "alice", ReminderRequest{Title: " Call the bank ", ReminderDate: at})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Title != "Call the bank" || created.OwnerID != "alice" {
		t.Fatalf("unexpected reminder %+v", created)
	}

	if _, err := uc.Get(ctx, "bob", created.ID); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("other users must not see the reminder, got %v", err)
	}
	if err := uc.Delete(ctx, "bob", created.ID); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("other users must not delete the reminder, got %v", err)
	}
	list, _ := uc.List(ctx, "bob")
	if len(list) != 0 {
		t.Fatalf("bob should have no reminders, got %d", len(list))
	}

	updated, err := uc.Update(ctx, "alice", created.ID, ReminderRequest{Title: "Call the bank", Description: "ask about fees", ReminderDate: at})
	if err != nil || updated.Description != "ask about fees" {
		t.Fatalf("update failed: %+v %v", updated, err)
	}

	if err := uc.Delete(ctx, "alice", created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Get(ctx, "alice", created.ID); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestReminderValidation(t *testing.T) {
	uc := NewReminderUsecase(repository.NewMemoryReminderRepository())
	_, err := uc.Create(context.Background(), "alice", ReminderRequest{Title: "   ", ReminderDate: time.Now()})
	if apperror.KindOf(err) != apperror.KindInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
	_, err = uc.Create(context.Background(), "alice", ReminderRequest{Title: "No date"})
	if apperror.KindOf(err) != apperror.KindInvalid {
		t.Fatalf("expected invalid for a missing date, got %v", err)
	}
}

func TestMovingTheDateRearms(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryReminderRepository()
	uc := NewReminderUsecase(repo)
	past := time.Now().Add(-time.Minute)

	created, _ := uc.Create(ctx, "alice", ReminderRequest{Title: "Stand-up", ReminderDate: past})
	if err := repo.MarkNotified(ctx, created.ID, time.Now()); err != nil {
		t.Fatal(err)
	}

	same, _ := uc.Update(ctx, "alice", created.ID, ReminderRequest{Title: "Stand-up!", ReminderDate: past})
	if same.NotifiedAt == nil {
		t.Fatal("editing the title must not re-arm the reminder")
	}
	moved, _ := uc.Update(ctx, "alice", created.ID, ReminderRequest{Title: "Stand-up", ReminderDate: past.Add(24 * time.Hour)})
	if moved.NotifiedAt != nil {
		t.Fatal("moving the date should re-arm the reminder")
	}
}
