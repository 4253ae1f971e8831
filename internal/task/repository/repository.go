package repository

import (
	"context"

	"worksync-backend/internal/task/domain"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task, assigning an ID when missing
	Create(ctx context.Context, task *domain.Task) error

	// FindByID returns nil, nil when the task does not exist
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// FindByMember returns every task whose member list contains userID,
	// oldest first
	FindByMember(ctx context.Context, userID string) ([]*domain.Task, error)

	// Update saves all fields of an existing task
	Update(ctx context.Context, task *domain.Task) error

	// UpdateStatus writes only the status column
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error

	// UpdatePriorities sets the priority of several tasks in one statement
	UpdatePriorities(ctx context.Context, ids []string, priority int) error

	// Delete deletes a task by ID
	Delete(ctx context.Context, id string) error
}
