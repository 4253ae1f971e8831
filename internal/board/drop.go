package board

import "worksync-backend/internal/task/domain"

// DeleteZoneID is the destination id of the delete drop target.
const DeleteZoneID = "delete"

// Location is a slot on the board: a column id and an index inside it.
type Location struct {
	ColumnID string `json:"column_id" binding:"required"`
	Index    int    `json:"index"`
}

// DropEvent is what the drag library reports when a card is released.
// Destination is nil when the card was dropped outside any column.
type DropEvent struct {
	TaskID      string    `json:"task_id" binding:"required"`
	Source      Location  `json:"source"`
	Destination *Location `json:"destination"`
}

type ActionType string

const (
	ActionNone         ActionType = "none"
	ActionDelete       ActionType = "delete"
	ActionUpdateStatus ActionType = "update_status"
)

// Action is the single write a drop results in.
type Action struct {
	Type   ActionType        `json:"type"`
	TaskID string            `json:"task_id,omitempty"`
	Status domain.TaskStatus `json:"status,omitempty"`
}

var none = Action{Type: ActionNone}

// Reconcile decides which write, if any, a drop requires. Reordering inside a
// column is never persisted, and a drop on a task that no longer exists or is
// still pending acceptance is ignored.
func Reconcile(tasks []*domain.Task, ev DropEvent) Action {
	if ev.Destination == nil {
		return none
	}
	dst := *ev.Destination
	if dst == ev.Source {
		return none
	}

	task := find(tasks, ev.TaskID)
	if task == nil || task.Status == domain.StatusPending {
		return none
	}

	if dst.ColumnID == DeleteZoneID {
		return Action{Type: ActionDelete, TaskID: task.ID}
	}

	status, err := domain.ParseStatus(dst.ColumnID)
	if err != nil || status == domain.StatusPending {
		return none
	}
	if status == task.Status {
		return none
	}
	return Action{Type: ActionUpdateStatus, TaskID: task.ID, Status: status}
}

func find(tasks []*domain.Task, id string) *domain.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
