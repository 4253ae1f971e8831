package escalation

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/repository"
	"worksync-backend/internal/task/store"
)

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo repository.TaskRepository, title string, status domain.TaskStatus, priority int, due *time.Duration) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: title, Status: status, Priority: priority, OwnerID: "alice", ID: title}
	if due != nil {
		at := now.Add(*due)
		task.DueDate = &at
	}
	task.EnsureMembers()
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("seed %s: %v", title, err)
	}
	return task
}

func dur(d time.Duration) *time.Duration { return &d }

func newEscalator(t *testing.T, guard SessionGuard) (*Escalator, repository.TaskRepository) {
	repo := repository.NewMemoryTaskRepository()
	cmd := store.NewCommander(repo, nil, nil, time.Second)
	e := NewEscalator(repo, cmd, guard)
	e.now = func() time.Time { return now }
	return e, repo
}

func priority(t *testing.T, repo repository.TaskRepository, id string) int {
	t.Helper()
	task, err := repo.FindByID(context.Background(), id)
	if err != nil || task == nil {
		t.Fatalf("find %s: %v", id, err)
	}
	return task.Priority
}

func TestRunForSessionEscalatesDueTasks(t *testing.T) {
	e, repo := newEscalator(t, NewMemoryGuard(time.Hour))
	seed(t, repo, "soon", domain.StatusTodo, 5, dur(10*time.Hour))
	seed(t, repo, "overdue", domain.StatusInProgress, 8, dur(-3*time.Hour))
	seed(t, repo, "later", domain.StatusTodo, 5, dur(48*time.Hour))
	seed(t, repo, "done", domain.StatusCompleted, 5, dur(2*time.Hour))
	seed(t, repo, "undated", domain.StatusTodo, 5, nil)
	seed(t, repo, "already", domain.StatusTodo, 1, dur(time.Hour))

	report, err := e.RunForSession(context.Background(), "alice", "s1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Ran || len(report.TaskIDs) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	want := map[string]int{"soon": 1, "overdue": 1, "later": 5, "done": 5, "undated": 5, "already": 1}
	for id, p := range want {
		if got := priority(t, repo, id); got != p {
			t.Fatalf("%s: priority %d, want %d", id, got, p)
		}
	}
}

func TestRunForSessionOncePerSession(t *testing.T) {
	e, repo := newEscalator(t, NewMemoryGuard(time.Hour))
	ctx := context.Background()

	if r, _ := e.RunForSession(ctx, "alice", "s1"); !r.Ran {
		t.Fatal("first run must happen")
	}
	seed(t, repo, "soon", domain.StatusTodo, 5, dur(10*time.Hour))

	if r, _ := e.RunForSession(ctx, "alice", "s1"); r.Ran {
		t.Fatal("second run in the same session must be skipped")
	}
	if priority(t, repo, "soon") != 5 {
		t.Fatal("skipped run must not write")
	}

	if r, _ := e.RunForSession(ctx, "alice", "s2"); !r.Ran || len(r.TaskIDs) != 1 {
		t.Fatalf("a new session runs again, got %+v", r)
	}
}

func TestRedisGuard(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisGuard(client, time.Hour)
	ctx := context.Background()

	first, err := guard.Claim(ctx, "alice", "s1")
	if err != nil || !first {
		t.Fatalf("first claim: %v %v", first, err)
	}
	again, _ := guard.Claim(ctx, "alice", "s1")
	if again {
		t.Fatal("second claim must fail")
	}
	if ttl := mr.TTL(guardKey("alice", "s1")); ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := guard.Claim(ctx, "alice", "s1"); !ok {
		t.Fatal("claim should be available after expiry")
	}
}

func TestMemoryGuardExpires(t *testing.T) {
	guard := NewMemoryGuard(-time.Second).(*memoryGuard)
	ctx := context.Background()
	if ok, _ := guard.Claim(ctx, "u", "s"); !ok {
		t.Fatal("first claim")
	}
	if ok, _ := guard.Claim(ctx, "u", "s"); !ok {
		t.Fatal("expired claim should be reclaimable")
	}
}

func TestDue(t *testing.T) {
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }
	tasks := []*domain.Task{
		{ID: "edge", Status: domain.StatusReview, Priority: 3, DueDate: at(24 * time.Hour)},
		{ID: "past-edge", Status: domain.StatusReview, Priority: 3, DueDate: at(-24*time.Hour - time.Minute)},
		{ID: "pending", Status: domain.StatusPending, Priority: 9, DueDate: at(time.Hour)},
	}
	got := Due(tasks, now)
	if len(got) != 2 || got[0] != "edge" || got[1] != "pending" {
		t.Fatalf("unexpected due ids %v", got)
	}
}
