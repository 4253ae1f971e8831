package board

import (
	"testing"

	"worksync-backend/internal/task/domain"
)

func TestReconcile(t *testing.T) {
	tasks := []*domain.Task{
		task("a", domain.StatusTodo, 5),
		task("b", domain.StatusReview, 2),
		task("p", domain.StatusPending, 5),
	}
	at := func(col string, idx int) *Location { return &Location{ColumnID: col, Index: idx} }
	todo := string(domain.StatusTodo)

	cases := []struct {
		name string
		ev   DropEvent
		want Action
	}{
		{
			"move to another column writes status only",
			DropEvent{TaskID: "a", Source: Location{todo, 0}, Destination: at(string(domain.StatusInProgress), 3)},
			Action{Type: ActionUpdateStatus, TaskID: "a", Status: domain.StatusInProgress},
		},
		{
			"slug column ids are accepted",
			DropEvent{TaskID: "a", Source: Location{todo, 0}, Destination: at("completed", 0)},
			Action{Type: ActionUpdateStatus, TaskID: "a", Status: domain.StatusCompleted},
		},
		{
			"reorder within a column is not persisted",
			DropEvent{TaskID: "a", Source: Location{todo, 0}, Destination: at(todo, 4)},
			none,
		},
		{
			"same position",
			DropEvent{TaskID: "a", Source: Location{todo, 0}, Destination: at(todo, 0)},
			none,
		},
		{
			"dropped outside the board",
			DropEvent{TaskID: "a", Source: Location{todo, 0}},
			none,
		},
		{
			"delete zone",
			DropEvent{TaskID: "b", Source: Location{string(domain.StatusReview), 0}, Destination: at(DeleteZoneID, 0)},
			Action{Type: ActionDelete, TaskID: "b"},
		},
		{
			"stale task id fails silently",
			DropEvent{TaskID: "gone", Source: Location{todo, 0}, Destination: at(DeleteZoneID, 0)},
			none,
		},
		{
			"unknown column",
			DropEvent{TaskID: "a", Source: Location{todo, 0}, Destination: at("archive", 0)},
			none,
		},
		{
			"pending task cannot be moved onto a column",
			DropEvent{TaskID: "p", Source: Location{string(domain.StatusPending), 0}, Destination: at(todo, 0)},
			none,
		},
		{
			"pending task cannot be deleted from the board",
			DropEvent{TaskID: "p", Source: Location{string(domain.StatusPending), 0}, Destination: at(DeleteZoneID, 0)},
			none,
		},
		{
			"pending is not a drop target",
			DropEvent{TaskID: "a", Source: Location{todo, 0}, Destination: at(string(domain.StatusPending), 0)},
			none,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reconcile(tasks, tc.ev); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestDeleteZoneRemovesTaskFromLaterProjections(t *testing.T) {
	tasks := []*domain.Task{task("a", domain.StatusTodo, 5), task("b", domain.StatusTodo, 6)}
	action := Reconcile(tasks, DropEvent{TaskID: "a", Source: Location{ColumnID: string(domain.StatusTodo)}, Destination: &Location{ColumnID: DeleteZoneID}})
	if action.Type != ActionDelete {
		t.Fatalf("expected delete, got %+v", action)
	}

	var remaining []*domain.Task
	for _, t2 := range tasks {
		if t2.ID != action.TaskID {
			remaining = append(remaining, t2)
		}
	}
	if got := ids(Visible(remaining, Filter{})); !equal(got, []string{"b"}) {
		t.Fatalf("expected only b to remain, got %v", got)
	}
}
