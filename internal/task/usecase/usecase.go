package usecase

import (
	"context"
	"time"

	authdomain "worksync-backend/internal/auth/domain"
	"worksync-backend/internal/board"
	"worksync-backend/internal/flow"
	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/escalation"
	"worksync-backend/internal/task/store"
)

// TaskUsecase defines the interface for task business logic. Writes return a
// store.Result the caller may wait on or ignore.
type TaskUsecase interface {
	CreateTask(ctx context.Context, userID string, req CreateTaskRequest) (*domain.Task, store.Result, error)
	// GetTaskByID retrieves a task the user is a member of
	GetTaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error)
	// ListTasks returns every task the user is a member of, oldest first
	ListTasks(ctx context.Context, userID string) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, req TaskUpdateRequest) (*domain.Task, store.Result, error)
	UpdateStatus(ctx context.Context, userID, taskID string, status domain.TaskStatus) (store.Result, error)
	DeleteTask(ctx context.Context, userID, taskID string) (store.Result, error)

	// AssignTask hands the task to another user, who has to accept it
	AssignTask(ctx context.Context, userID, taskID string, req AssignRequest) (*domain.Task, store.Result, error)
	AcceptTask(ctx context.Context, userID, taskID string) (*domain.Task, store.Result, error)
	DeclineTask(ctx context.Context, userID, taskID string) (*domain.Task, store.Result, error)
	Inbox(ctx context.Context, userID string) ([]*domain.Task, error)

	Board(ctx context.Context, userID string, filter board.Filter) (board.Board, error)
	Drop(ctx context.Context, userID string, ev board.DropEvent) (board.Action, store.Result, error)

	Escalate(ctx context.Context, userID, sessionID string) (escalation.Report, error)
	// ExtractActionItems turns the action items of a meeting transcript into tasks
	ExtractActionItems(ctx context.Context, userID, transcript string) ([]*domain.Task, error)

	SetFlowRegistry(registry *flow.Registry)
	SetEscalator(escalator *escalation.Escalator)
	SetUserDirectory(users UserDirectory)
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    *int       `json:"priority"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"due_date"`
	AssigneeID  string     `json:"assignee_id"`
}

// TaskUpdateRequest represents the fields that can be updated
type TaskUpdateRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Priority     *int       `json:"priority,omitempty"`
	Tags         *[]string  `json:"tags,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
}

// AssignRequest names the new assignee by id or by email
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
	Email      string `json:"email"`
}

// UserDirectory resolves assignees
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*authdomain.User, error)
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
}
