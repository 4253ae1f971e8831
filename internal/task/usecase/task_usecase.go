package usecase

import (
	"context"
	"strings"
	"time"

	"worksync-backend/internal/board"
	"worksync-backend/internal/flow"
	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/escalation"
	"worksync-backend/internal/task/repository"
	"worksync-backend/internal/task/store"
	"worksync-backend/pkg/apperror"

	log "github.com/sirupsen/logrus"
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo  repository.TaskRepository
	store     *store.Store
	commander *store.Commander
	flows     *flow.Registry
	escalator *escalation.Escalator
	users     UserDirectory
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository, st *store.Store, commander *store.Commander) TaskUsecase {
	return &taskUsecase{
		taskRepo:  taskRepo,
		store:     st,
		commander: commander,
	}
}

func (u *taskUsecase) SetFlowRegistry(registry *flow.Registry) {
	u.flows = registry
}

func (u *taskUsecase) SetEscalator(escalator *escalation.Escalator) {
	u.escalator = escalator
}

func (u *taskUsecase) SetUserDirectory(users UserDirectory) {
	u.users = users
}

func (u *taskUsecase) CreateTask(ctx context.Context, userID string, req CreateTaskRequest) (*domain.Task, store.Result, error) {
	status := domain.StatusBacklog
	if req.Status != "" {
		parsed, err := domain.ParseStatus(req.Status)
		if err != nil || parsed == domain.StatusPending {
			return nil, nil, apperror.Invalid("task.create", "invalid status "+req.Status)
		}
		status = parsed
	}
	priority := domain.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}

	task := &domain.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		Tags:        domain.NormalizeTags(req.Tags),
		DueDate:     req.DueDate,
		OwnerID:     userID,
		CreatedAt:   time.Now(),
	}
	if req.AssigneeID != "" && req.AssigneeID != userID {
		if err := u.ensureUser(ctx, req.AssigneeID); err != nil {
			return nil, nil, err
		}
		task.AssigneeID = req.AssigneeID
		task.Status = domain.StatusPending
	}
	task.EnsureMembers()
	if err := task.Validate(); err != nil {
		return nil, nil, apperror.New(apperror.KindInvalid, "task.create", err)
	}

	return task, u.commander.Create(userID, task), nil
}

func (u *taskUsecase) GetTaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, apperror.Classify("task.get", err)
	}
	if task == nil {
		return nil, apperror.NotFound("task.get", taskID)
	}
	if !task.IsMember(userID) {
		return nil, apperror.Forbidden("task.get", "not a member of task "+taskID)
	}
	return task, nil
}

func (u *taskUsecase) ListTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	return u.store.Current(ctx, store.Query{UserID: userID})
}

func (u *taskUsecase) UpdateTask(ctx context.Context, userID, taskID string, req TaskUpdateRequest) (*domain.Task, store.Result, error) {
	task, err := u.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, nil, err
	}
	previous := append([]string(nil), task.MemberIDs...)

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		status, err := u.checkTransition(task, *req.Status)
		if err != nil {
			return nil, nil, err
		}
		task.Status = status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Tags != nil {
		task.Tags = domain.NormalizeTags(*req.Tags)
	}
	if req.ClearDueDate {
		task.DueDate = nil
	} else if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	task.EnsureMembers()
	if err := task.Validate(); err != nil {
		return nil, nil, apperror.New(apperror.KindInvalid, "task.update", err)
	}
	return task, u.commander.Update(userID, task, previous), nil
}

func (u *taskUsecase) UpdateStatus(ctx context.Context, userID, taskID string, status domain.TaskStatus) (store.Result, error) {
	task, err := u.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	next, err := u.checkTransition(task, string(status))
	if err != nil {
		return nil, err
	}
	return u.commander.UpdateStatus(userID, taskID, next), nil
}

// checkTransition keeps Pending reserved for unaccepted assignments
func (u *taskUsecase) checkTransition(task *domain.Task, raw string) (domain.TaskStatus, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return "", apperror.Invalid("task.status", err.Error())
	}
	if status == task.Status {
		return status, nil
	}
	if status == domain.StatusPending {
		return "", apperror.Invalid("task.status", "tasks become pending only through assignment")
	}
	if task.Status == domain.StatusPending {
		return "", apperror.Invalid("task.status", "a pending task must be accepted or declined first")
	}
	return status, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, userID, taskID string) (store.Result, error) {
	if _, err := u.GetTaskByID(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return u.commander.Delete(userID, taskID), nil
}

func (u *taskUsecase) Inbox(ctx context.Context, userID string) ([]*domain.Task, error) {
	tasks, err := u.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return board.Inbox(tasks, userID), nil
}

func (u *taskUsecase) Board(ctx context.Context, userID string, filter board.Filter) (board.Board, error) {
	tasks, err := u.ListTasks(ctx, userID)
	if err != nil {
		return board.Board{}, err
	}
	return board.Project(tasks, filter), nil
}

func (u *taskUsecase) Drop(ctx context.Context, userID string, ev board.DropEvent) (board.Action, store.Result, error) {
	tasks, err := u.ListTasks(ctx, userID)
	if err != nil {
		return board.Action{}, nil, err
	}

	// The snapshot may still hold a task deleted elsewhere; such drops stay silent.
	action := board.Reconcile(tasks, ev)
	switch action.Type {
	case board.ActionDelete:
		return action, u.commander.Delete(userID, action.TaskID, store.IgnoreMissing()), nil
	case board.ActionUpdateStatus:
		task := findTask(tasks, action.TaskID)
		if _, err := u.checkTransition(task, string(action.Status)); err != nil {
			return board.Action{}, nil, err
		}
		return action, u.commander.UpdateStatus(userID, action.TaskID, action.Status, store.IgnoreMissing()), nil
	default:
		log.Debugf("[TaskUsecase] Drop of task %s needs no write", ev.TaskID)
		return action, nil, nil
	}
}

func (u *taskUsecase) Escalate(ctx context.Context, userID, sessionID string) (escalation.Report, error) {
	if u.escalator == nil {
		return escalation.Report{}, apperror.New(apperror.KindUnknown, "task.escalate", errNotConfigured("escalator"))
	}
	report, err := u.escalator.RunForSession(ctx, userID, sessionID)
	if err != nil {
		return report, apperror.Classify("task.escalate", err)
	}
	return report, nil
}

func findTask(tasks []*domain.Task, id string) *domain.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
