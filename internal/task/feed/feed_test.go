package feed

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func collect(t *testing.T, f Feed) (<-chan Change, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Change, 8)
	done := make(chan struct{})
	go func() {
		_ = f.Listen(ctx, func(c Change) { out <- c })
		close(done)
	}()
	return out, cancel, done
}

func waitChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestLocalFeedDeliversToAllListeners(t *testing.T) {
	f := NewLocalFeed()
	a, cancelA, doneA := collect(t, f)
	b, cancelB, doneB := collect(t, f)
	defer func() { cancelA(); cancelB(); <-doneA; <-doneB }()

	// Listeners register asynchronously
	deadline := time.Now().Add(time.Second)
	for {
		f.mu.RLock()
		n := len(f.listeners)
		f.mu.RUnlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	change := Change{Type: ChangeUpdated, TaskID: "t1", MemberIDs: []string{"u1"}}
	if err := f.Publish(context.Background(), change); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := waitChange(t, a); got.TaskID != "t1" {
		t.Fatalf("unexpected change %+v", got)
	}
	if got := waitChange(t, b); got.TaskID != "t1" {
		t.Fatalf("unexpected change %+v", got)
	}
}

func TestRedisFeedRoundTrip(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	f := NewRedisFeed(rc, "task-changes")
	changes, cancel, done := collect(t, f)

	// wait for subscription to start
	deadline := time.Now().Add(time.Second)
	for len(m.PubSubChannels("task-changes")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	want := Change{Type: ChangeDeleted, TaskID: "t9", MemberIDs: []string{"u1", "u2"}}
	if err := f.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got := waitChange(t, changes)
	if got.Type != ChangeDeleted || got.TaskID != "t9" || !got.Affects("u2") || got.Affects("u3") {
		t.Fatalf("unexpected change %+v", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}
