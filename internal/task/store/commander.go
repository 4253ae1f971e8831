package store

import (
	"context"
	"sync"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/feed"
	"worksync-backend/internal/task/repository"
	"worksync-backend/pkg/apperror"
	"worksync-backend/pkg/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Notifier receives failures of writes nobody waited for.
type Notifier interface {
	NotifyError(userID string, err *apperror.Error)
}

// Result completes with the outcome of a write. Callers may ignore it.
type Result <-chan error

// Wait blocks until r completes or ctx is done.
func (r Result) Wait(ctx context.Context) error {
	select {
	case err := <-r:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteOption adjusts how one write reports its outcome.
type WriteOption func(*writeOptions)

type writeOptions struct {
	ignoreMissing bool
}

// IgnoreMissing makes a write on a task that no longer exists complete
// without error and without notifying anyone.
func IgnoreMissing() WriteOption {
	return func(o *writeOptions) { o.ignoreMissing = true }
}

// Commander issues task writes in the background. Each write runs on its own
// context, so an abandoned request never cancels it. Failures are classified,
// counted and sent to the notifier; successes are published on the feed.
type Commander struct {
	repo     repository.TaskRepository
	feed     feed.Feed
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewCommander(repo repository.TaskRepository, f feed.Feed, notifier Notifier, timeout time.Duration) *Commander {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Commander{repo: repo, feed: f, notifier: notifier, timeout: timeout}
}

// Create inserts task on behalf of userID. The ID is assigned before the
// write starts so callers can hand it out immediately.
func (c *Commander) Create(userID string, task *domain.Task) Result {
	task.EnsureMembers()
	if task.ID == "" {
		task.ID = newID()
	}
	write := task.Clone()
	return c.run("create", userID, func(ctx context.Context) (*feed.Change, error) {
		if err := write.Validate(); err != nil {
			return nil, apperror.New(apperror.KindInvalid, "task.create", err)
		}
		if err := c.repo.Create(ctx, write); err != nil {
			return nil, err
		}
		return &feed.Change{Type: feed.ChangeCreated, TaskID: write.ID, MemberIDs: write.MemberIDs}, nil
	})
}

// Update saves every field of task. previousMembers are notified as well so
// users removed from the task drop it from their views.
func (c *Commander) Update(userID string, task *domain.Task, previousMembers []string) Result {
	task.EnsureMembers()
	write := task.Clone()
	return c.run("update", userID, func(ctx context.Context) (*feed.Change, error) {
		if err := write.Validate(); err != nil {
			return nil, apperror.New(apperror.KindInvalid, "task.update", err)
		}
		if err := c.repo.Update(ctx, write); err != nil {
			return nil, err
		}
		members := append(append([]string{}, previousMembers...), write.MemberIDs...)
		return &feed.Change{Type: feed.ChangeUpdated, TaskID: write.ID, MemberIDs: members}, nil
	})
}

// UpdateStatus writes only the status field.
func (c *Commander) UpdateStatus(userID, taskID string, status domain.TaskStatus, opts ...WriteOption) Result {
	return c.run("update_status", userID, func(ctx context.Context) (*feed.Change, error) {
		if !status.Valid() {
			return nil, apperror.Invalid("task.update_status", "unknown status "+string(status))
		}
		task, err := c.find(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if err := c.repo.UpdateStatus(ctx, taskID, status); err != nil {
			return nil, err
		}
		return &feed.Change{Type: feed.ChangeUpdated, TaskID: taskID, MemberIDs: task.MemberIDs}, nil
	}, opts...)
}

// UpdatePriorities sets priority on all ids in one batch write.
func (c *Commander) UpdatePriorities(userID string, ids []string, priority int) Result {
	return c.run("update_priorities", userID, func(ctx context.Context) (*feed.Change, error) {
		var members []string
		for _, id := range ids {
			task, err := c.repo.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if task != nil {
				members = append(members, task.MemberIDs...)
			}
		}
		if err := c.repo.UpdatePriorities(ctx, ids, priority); err != nil {
			return nil, err
		}
		return &feed.Change{Type: feed.ChangeUpdated, MemberIDs: members}, nil
	})
}

// Delete removes the task.
func (c *Commander) Delete(userID, taskID string, opts ...WriteOption) Result {
	return c.run("delete", userID, func(ctx context.Context) (*feed.Change, error) {
		task, err := c.find(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if err := c.repo.Delete(ctx, taskID); err != nil {
			return nil, err
		}
		return &feed.Change{Type: feed.ChangeDeleted, TaskID: taskID, MemberIDs: task.MemberIDs}, nil
	}, opts...)
}

// Wait blocks until every write issued so far has finished.
func (c *Commander) Wait() {
	c.wg.Wait()
}

func newID() string { return uuid.New().String() }

func (c *Commander) find(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := c.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperror.NotFound("task.find", taskID)
	}
	return task, nil
}

func (c *Commander) run(op, userID string, write func(ctx context.Context) (*feed.Change, error), opts ...WriteOption) Result {
	var options writeOptions
	for _, opt := range opts {
		opt(&options)
	}

	result := make(chan error, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		change, err := write(ctx)
		if err != nil && options.ignoreMissing && apperror.KindOf(err) == apperror.KindNotFound {
			log.WithFields(log.Fields{"user_id": userID, "op": op}).
				Debugf("[TaskCommander] Task already gone, skipping write: %v", err)
			metrics.TaskWrites.WithLabelValues(op, "skipped").Inc()
			result <- nil
			return
		}
		metrics.TaskWrites.WithLabelValues(op, metrics.Outcome(err)).Inc()
		if err != nil {
			appErr := apperror.Classify("task."+op, err)
			log.WithFields(log.Fields{"user_id": userID, "op": op, "kind": appErr.Kind}).
				Errorf("[TaskCommander] Write failed: %v", err)
			if c.notifier != nil {
				c.notifier.NotifyError(userID, appErr)
			}
			result <- appErr
			return
		}

		if c.feed != nil && change != nil {
			change.OccurredAt = time.Now()
			if err := c.feed.Publish(ctx, *change); err != nil {
				log.Printf("[TaskCommander] Failed to publish %s change for task %s: %v", change.Type, change.TaskID, err)
			}
		}
		result <- nil
	}()
	return result
}
