package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/feed"
	"worksync-backend/internal/task/repository"
	"worksync-backend/pkg/apperror"
)

type stubLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(userID string) ([]*domain.Task, error)
}

func (s *stubLoader) FindByMember(ctx context.Context, userID string) ([]*domain.Task, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[userID]++
	fn := s.fn
	s.mu.Unlock()
	return fn(userID)
}

func (s *stubLoader) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[userID]
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) consume(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) last(t *testing.T) Snapshot {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		t.Fatal("no snapshot delivered")
	}
	return r.snaps[len(r.snaps)-1]
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func tasksFor(titles ...string) []*domain.Task {
	var out []*domain.Task
	for _, title := range titles {
		out = append(out, &domain.Task{ID: title, Title: title})
	}
	return out
}

func TestSubscribeSharesOneListenerPerQuery(t *testing.T) {
	loader := &stubLoader{fn: func(string) ([]*domain.Task, error) { return tasksFor("a"), nil }}
	s := NewStore(loader, time.Second)

	var first, second recorder
	unsubA := s.Subscribe(&Query{UserID: "u1"}, first.consume)
	unsubB := s.Subscribe(&Query{UserID: "u1"}, second.consume)

	if n := loader.count("u1"); n != 1 {
		t.Fatalf("expected one load for a shared query, got %d", n)
	}
	if s.ActiveQueries() != 1 {
		t.Fatalf("expected one active query, got %d", s.ActiveQueries())
	}
	if first.len() != 1 || second.len() != 1 {
		t.Fatalf("both consumers need the initial snapshot, got %d and %d", first.len(), second.len())
	}

	unsubA()
	unsubA()
	if s.ActiveQueries() != 1 {
		t.Fatal("listener must survive while a consumer remains")
	}
	unsubB()
	if s.ActiveQueries() != 0 {
		t.Fatal("last unsubscribe must tear the listener down")
	}
}

func TestNilQuerySubscribesToNothing(t *testing.T) {
	loader := &stubLoader{fn: func(string) ([]*domain.Task, error) { return nil, nil }}
	s := NewStore(loader, time.Second)

	var rec recorder
	unsub := s.Subscribe(nil, rec.consume)
	unsub()
	if rec.len() != 0 || s.ActiveQueries() != 0 || loader.count("") != 0 {
		t.Fatal("nil query must not load or deliver")
	}
}

func TestChangeReloadsOnlyAffectedMembers(t *testing.T) {
	loader := &stubLoader{fn: func(uid string) ([]*domain.Task, error) { return tasksFor(uid), nil }}
	s := NewStore(loader, time.Second)

	var alice, bob recorder
	defer s.Subscribe(&Query{UserID: "alice"}, alice.consume)()
	defer s.Subscribe(&Query{UserID: "bob"}, bob.consume)()

	s.HandleChange(feed.Change{Type: feed.ChangeUpdated, TaskID: "t", MemberIDs: []string{"alice"}})

	if alice.len() != 2 || alice.last(t).Version != 2 {
		t.Fatalf("alice should have been reloaded, got %d snapshots", alice.len())
	}
	if bob.len() != 1 {
		t.Fatalf("bob should not have been reloaded, got %d snapshots", bob.len())
	}
}

func TestReloadErrorKeepsLastKnownGood(t *testing.T) {
	fail := false
	var mu sync.Mutex
	loader := &stubLoader{fn: func(string) ([]*domain.Task, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, apperror.Forbidden("load", "rules rejected read")
		}
		return tasksFor("keep"), nil
	}}
	s := NewStore(loader, time.Second)

	var rec recorder
	defer s.Subscribe(&Query{UserID: "u1"}, rec.consume)()

	mu.Lock()
	fail = true
	mu.Unlock()
	s.HandleChange(feed.Change{MemberIDs: []string{"u1"}})

	snap := rec.last(t)
	if snap.Error == nil || snap.Error.Kind != apperror.KindPermissionDenied {
		t.Fatalf("expected permission error, got %+v", snap.Error)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].ID != "keep" {
		t.Fatalf("expected last known-good tasks, got %+v", snap.Tasks)
	}

	// Listener stays alive and recovers
	mu.Lock()
	fail = false
	mu.Unlock()
	s.HandleChange(feed.Change{MemberIDs: []string{"u1"}})
	if snap := rec.last(t); snap.Error != nil {
		t.Fatalf("expected recovery, got %+v", snap.Error)
	}
}

func TestFirstLoadFailureDeliversEmptyList(t *testing.T) {
	loader := &stubLoader{fn: func(string) ([]*domain.Task, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	s := NewStore(loader, time.Second)

	var rec recorder
	defer s.Subscribe(&Query{UserID: "u1"}, rec.consume)()

	snap := rec.last(t)
	if snap.Tasks == nil || len(snap.Tasks) != 0 {
		t.Fatalf("expected empty task list, got %+v", snap.Tasks)
	}
	if snap.Error == nil || snap.Error.Kind != apperror.KindNetwork {
		t.Fatalf("expected network error, got %+v", snap.Error)
	}
}

func TestCurrentPrefersHealthyListener(t *testing.T) {
	loader := &stubLoader{fn: func(string) ([]*domain.Task, error) { return tasksFor("x"), nil }}
	s := NewStore(loader, time.Second)

	tasks, err := s.Current(context.Background(), Query{UserID: "u1"})
	if err != nil || len(tasks) != 1 || loader.count("u1") != 1 {
		t.Fatalf("expected direct load, got %v %v calls=%d", tasks, err, loader.count("u1"))
	}

	defer s.Subscribe(&Query{UserID: "u1"}, func(Snapshot) {})()
	_, _ = s.Current(context.Background(), Query{UserID: "u1"})
	if loader.count("u1") != 2 {
		t.Fatalf("expected the listener snapshot to be reused, calls=%d", loader.count("u1"))
	}
}

func TestRunReloadsFromFeed(t *testing.T) {
	repo := repository.NewMemoryTaskRepository()
	f := feed.NewLocalFeed()
	s := NewStore(repo, time.Second)
	cmd := NewCommander(repo, f, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, f)

	got := make(chan Snapshot, 16)
	defer s.Subscribe(&Query{UserID: "bob"}, func(snap Snapshot) { got <- snap })()
	if snap := <-got; len(snap.Tasks) != 0 {
		t.Fatalf("expected empty initial view, got %+v", snap.Tasks)
	}

	task := &domain.Task{Title: "shared", Status: domain.StatusBacklog, Priority: 5, OwnerID: "alice", AssigneeID: "bob"}
	if err := cmd.Create("alice", task).Wait(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Run attaches to the feed asynchronously, so the first publish may be
	// missed; republishing the same change is harmless.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-got:
			if len(snap.Tasks) == 1 && snap.Tasks[0].ID == task.ID {
				return
			}
		case <-time.After(20 * time.Millisecond):
			_ = f.Publish(ctx, feed.Change{Type: feed.ChangeCreated, TaskID: task.ID, MemberIDs: []string{"bob"}})
		case <-deadline:
			t.Fatal("bob never received the shared task")
		}
	}
}

func TestSlowLoadDoesNotBlockOtherQueries(t *testing.T) {
	release := make(chan struct{})
	loader := &stubLoader{fn: func(uid string) ([]*domain.Task, error) {
		if uid == "slow" {
			<-release
		}
		return tasksFor(uid), nil
	}}
	s := NewStore(loader, 5*time.Second)
	defer close(release)

	var first, second recorder
	go s.Subscribe(&Query{UserID: "slow"}, first.consume)
	for loader.count("slow") == 0 {
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Subscribe(&Query{UserID: "slow"}, second.consume)
		s.Subscribe(&Query{UserID: "fast"}, func(Snapshot) {})
		_, _ = s.Current(context.Background(), Query{UserID: "fast"})
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscribe for another user waited on a slow load")
	}
	if second.len() != 0 {
		t.Fatal("a joining consumer must wait for the first snapshot")
	}
}

func TestJoiningConsumerGetsSnapshotAfterSlowLoad(t *testing.T) {
	release := make(chan struct{})
	loader := &stubLoader{fn: func(uid string) ([]*domain.Task, error) {
		<-release
		return tasksFor("a"), nil
	}}
	s := NewStore(loader, 5*time.Second)

	var first, second recorder
	loaded := make(chan struct{})
	go func() {
		s.Subscribe(&Query{UserID: "u1"}, first.consume)
		close(loaded)
	}()
	for loader.count("u1") == 0 {
		time.Sleep(time.Millisecond)
	}
	defer s.Subscribe(&Query{UserID: "u1"}, second.consume)()

	close(release)
	<-loaded
	if first.len() != 1 || second.len() != 1 {
		t.Fatalf("both consumers need exactly one snapshot, got %d and %d", first.len(), second.len())
	}
	if loader.count("u1") != 1 {
		t.Fatalf("expected a single load, got %d", loader.count("u1"))
	}
}
