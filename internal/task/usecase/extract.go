package usecase

import (
	"context"
	"fmt"
	"time"

	"worksync-backend/internal/flow"
	"worksync-backend/internal/task/domain"
	"worksync-backend/pkg/apperror"

	log "github.com/sirupsen/logrus"
)

// MeetingTag marks tasks created from a transcript
const MeetingTag = "meeting"

func (u *taskUsecase) ExtractActionItems(ctx context.Context, userID, transcript string) ([]*domain.Task, error) {
	if u.flows == nil {
		return nil, apperror.New(apperror.KindUnknown, "task.extract", errNotConfigured("AI flows"))
	}

	result, err := flow.Call(ctx, u.flows, flow.ExtractActionItems, flow.ActionItemsInput{Transcript: transcript})
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(result.ActionItems))
	for _, item := range result.ActionItems {
		task := taskFromActionItem(userID, item)
		if err := task.Validate(); err != nil {
			log.Printf("[TaskUsecase] Skipping action item %q: %v", item.Title, err)
			continue
		}
		// Fire and forget; failures reach the user as toasts
		u.commander.Create(userID, task)
		tasks = append(tasks, task)
	}
	log.WithFields(log.Fields{"user_id": userID, "count": len(tasks)}).Info("[TaskUsecase] Created tasks from transcript")
	return tasks, nil
}

func taskFromActionItem(userID string, item flow.ActionItem) *domain.Task {
	priority := item.Priority
	if priority == 0 {
		priority = domain.DefaultPriority
	}
	description := item.Description
	if item.Assignee != "" {
		description = fmt.Sprintf("%s\n\nMentioned assignee: %s", description, item.Assignee)
	}

	task := &domain.Task{
		Title:       item.Title,
		Description: description,
		Status:      domain.StatusTodo,
		Priority:    priority,
		Tags:        domain.StringArray{MeetingTag},
		OwnerID:     userID,
		CreatedAt:   time.Now(),
	}
	if item.DueDate != "" {
		if due, err := time.ParseInLocation("2006-01-02", item.DueDate, time.Local); err == nil {
			end := due.Add(17 * time.Hour)
			task.DueDate = &end
		}
	}
	task.EnsureMembers()
	return task
}
