// Package escalation raises tasks that are about to fall due to the top
// priority, once per login session.
package escalation

import (
	"context"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/store"
	"worksync-backend/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

const (
	// Window is how close to the due date, either side, a task must be.
	Window = 24 * time.Hour
	// TopPriority is the priority escalated tasks receive.
	TopPriority = domain.MinPriority
)

type TaskLister interface {
	FindByMember(ctx context.Context, userID string) ([]*domain.Task, error)
}

type PriorityWriter interface {
	UpdatePriorities(userID string, ids []string, priority int) store.Result
}

type Escalator struct {
	tasks  TaskLister
	writer PriorityWriter
	guard  SessionGuard
	now    func() time.Time
}

func NewEscalator(tasks TaskLister, writer PriorityWriter, guard SessionGuard) *Escalator {
	return &Escalator{tasks: tasks, writer: writer, guard: guard, now: time.Now}
}

// Report describes one escalation pass.
type Report struct {
	// Ran is false when the session had already been escalated.
	Ran     bool     `json:"ran"`
	TaskIDs []string `json:"task_ids"`
}

// RunForSession escalates userID's tasks unless it already happened for
// sessionID. The batch write is best effort: a failure is logged and
// returned, never retried.
func (e *Escalator) RunForSession(ctx context.Context, userID, sessionID string) (Report, error) {
	report := Report{TaskIDs: []string{}}
	if sessionID != "" {
		claimed, err := e.guard.Claim(ctx, userID, sessionID)
		if err != nil {
			// Escalating twice is harmless, so run anyway.
			log.Printf("[Escalation] Session guard failed for user %s: %v", userID, err)
		} else if !claimed {
			return report, nil
		}
	}
	report.Ran = true

	tasks, err := e.tasks.FindByMember(ctx, userID)
	if err != nil {
		return report, err
	}
	report.TaskIDs = Due(tasks, e.now())
	if len(report.TaskIDs) == 0 {
		return report, nil
	}

	log.WithFields(log.Fields{"user_id": userID, "count": len(report.TaskIDs)}).
		Info("[Escalation] Raising tasks due within 24h to priority 1")
	if err := e.writer.UpdatePriorities(userID, report.TaskIDs, TopPriority).Wait(ctx); err != nil {
		log.Printf("[Escalation] Batch update failed for user %s: %v", userID, err)
		return report, err
	}
	metrics.EscalatedTasks.Add(float64(len(report.TaskIDs)))
	return report, nil
}

// Due returns the ids of tasks that need escalating at now: not completed,
// due within Window either side, and not already at the top priority.
func Due(tasks []*domain.Task, now time.Time) []string {
	ids := []string{}
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted || t.Priority == TopPriority {
			continue
		}
		if !t.DueWithin(now, Window) {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids
}
