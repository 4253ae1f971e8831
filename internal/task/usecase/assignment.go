package usecase

import (
	"context"
	"errors"

	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/store"
	"worksync-backend/pkg/apperror"
)

func errNotConfigured(what string) error {
	return errors.New(what + " is not configured")
}

// AssignTask makes req's user the assignee. Handing a task to anyone but the
// owner puts it in their inbox as Pending; handing it back to the owner puts
// it on the board again.
func (u *taskUsecase) AssignTask(ctx context.Context, userID, taskID string, req AssignRequest) (*domain.Task, store.Result, error) {
	task, err := u.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, nil, err
	}
	assigneeID, err := u.resolveAssignee(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if assigneeID == task.AssigneeID {
		return task, completed(), nil
	}

	previous := append([]string(nil), task.MemberIDs...)
	replaced := task.AssigneeID
	task.AssigneeID = assigneeID
	task.RemoveMember(replaced)
	if assigneeID == task.OwnerID {
		if task.Status == domain.StatusPending {
			task.Status = domain.StatusBacklog
		}
	} else {
		task.Status = domain.StatusPending
	}
	task.EnsureMembers()
	return task, u.commander.Update(userID, task, previous), nil
}

// AcceptTask moves a pending assignment onto the assignee's board.
func (u *taskUsecase) AcceptTask(ctx context.Context, userID, taskID string) (*domain.Task, store.Result, error) {
	task, err := u.pendingFor(ctx, userID, taskID, "task.accept")
	if err != nil {
		return nil, nil, err
	}
	previous := append([]string(nil), task.MemberIDs...)
	task.Status = domain.StatusBacklog
	return task, u.commander.Update(userID, task, previous), nil
}

// DeclineTask hands a pending assignment back to the owner and removes the
// decliner from the task.
func (u *taskUsecase) DeclineTask(ctx context.Context, userID, taskID string) (*domain.Task, store.Result, error) {
	task, err := u.pendingFor(ctx, userID, taskID, "task.decline")
	if err != nil {
		return nil, nil, err
	}
	previous := append([]string(nil), task.MemberIDs...)
	task.AssigneeID = task.OwnerID
	task.Status = domain.StatusBacklog
	task.RemoveMember(userID)
	task.EnsureMembers()
	return task, u.commander.Update(userID, task, previous), nil
}

func (u *taskUsecase) pendingFor(ctx context.Context, userID, taskID, op string) (*domain.Task, error) {
	task, err := u.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID != userID {
		return nil, apperror.Forbidden(op, "only the assignee can answer an assignment")
	}
	if task.Status != domain.StatusPending {
		return nil, apperror.Invalid(op, "task is not pending")
	}
	return task, nil
}

func (u *taskUsecase) resolveAssignee(ctx context.Context, req AssignRequest) (string, error) {
	switch {
	case req.AssigneeID != "":
		return req.AssigneeID, u.ensureUser(ctx, req.AssigneeID)
	case req.Email != "":
		if u.users == nil {
			return "", apperror.New(apperror.KindUnknown, "task.assign", errNotConfigured("user directory"))
		}
		user, err := u.users.FindByEmail(ctx, req.Email)
		if err != nil {
			return "", apperror.Classify("task.assign", err)
		}
		if user == nil {
			return "", apperror.NotFound("task.assign", "no user with email "+req.Email)
		}
		return user.ID, nil
	default:
		return "", apperror.Invalid("task.assign", "assignee_id or email is required")
	}
}

// ensureUser checks that id names an existing user when a directory is set
func (u *taskUsecase) ensureUser(ctx context.Context, id string) error {
	if u.users == nil {
		return nil
	}
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return apperror.Classify("task.assign", err)
	}
	if user == nil {
		return apperror.NotFound("task.assign", "no user "+id)
	}
	return nil
}

func completed() store.Result {
	ch := make(chan error, 1)
	ch <- nil
	return ch
}
