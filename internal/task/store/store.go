// Package store keeps live, per-user views of the task collection. A view is
// loaded once per distinct query and reloaded whenever the change feed
// reports a write that touches one of the query's members.
package store

import (
	"context"
	"sync"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/feed"
	"worksync-backend/pkg/apperror"
	"worksync-backend/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

// Loader reads the tasks a user is a member of, oldest first.
type Loader interface {
	FindByMember(ctx context.Context, userID string) ([]*domain.Task, error)
}

// Query identifies a live view. Two queries with the same Key share one
// listener.
type Query struct {
	UserID string
}

func (q Query) Key() string { return "member:" + q.UserID }

// SnapshotError is the typed failure attached to a snapshot.
type SnapshotError struct {
	Kind    apperror.Kind `json:"kind"`
	Message string        `json:"message"`
}

// Snapshot is one delivery of a live view. When Error is set, Tasks holds the
// last list that loaded successfully.
type Snapshot struct {
	Tasks   []*domain.Task `json:"tasks"`
	Version uint64         `json:"version"`
	Error   *SnapshotError `json:"error,omitempty"`
}

// loadMu orders reloads of one listener and is held across the load; mu guards
// the fields below and is never held across I/O.
type listener struct {
	query     Query
	loadMu    sync.Mutex
	mu        sync.Mutex
	consumers map[int]func(Snapshot)
	last      Snapshot
	loaded    bool
}

// Store owns the active listeners.
type Store struct {
	loader  Loader
	timeout time.Duration

	mu        sync.Mutex
	listeners map[string]*listener
	nextID    int
}

func NewStore(loader Loader, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		loader:    loader,
		timeout:   timeout,
		listeners: make(map[string]*listener),
	}
}

// Subscribe registers consumer for query and returns the function that
// removes it. A nil query subscribes to nothing. The consumer is called with
// the current snapshot and again after every relevant change; it must not
// block or modify the tasks it receives.
func (s *Store) Subscribe(query *Query, consumer func(Snapshot)) func() {
	if query == nil || query.UserID == "" {
		return func() {}
	}
	key := query.Key()

	s.mu.Lock()
	l, exists := s.listeners[key]
	if !exists {
		l = &listener{query: *query, consumers: make(map[int]func(Snapshot))}
		s.listeners[key] = l
		metrics.ActiveSubscriptions.Inc()
	}
	id := s.nextID
	s.nextID++
	l.mu.Lock()
	l.consumers[id] = consumer
	if l.loaded {
		consumer(l.last)
	}
	l.mu.Unlock()
	s.mu.Unlock()

	if !exists {
		s.reload(l)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(key, l, id) })
	}
}

func (s *Store) unsubscribe(key string, l *listener, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.mu.Lock()
	delete(l.consumers, id)
	empty := len(l.consumers) == 0
	l.mu.Unlock()

	if empty && s.listeners[key] == l {
		delete(s.listeners, key)
		metrics.ActiveSubscriptions.Dec()
	}
}

// ActiveQueries returns the number of distinct queries being listened to.
func (s *Store) ActiveQueries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Current returns the tasks visible to query. An active healthy listener is
// served from memory; otherwise the loader is asked directly.
func (s *Store) Current(ctx context.Context, query Query) ([]*domain.Task, error) {
	s.mu.Lock()
	l := s.listeners[query.Key()]
	s.mu.Unlock()

	if l != nil {
		l.mu.Lock()
		snap, ok := l.last, l.loaded && l.last.Error == nil
		l.mu.Unlock()
		if ok {
			return snap.Tasks, nil
		}
	}

	tasks, err := s.loader.FindByMember(ctx, query.UserID)
	if err != nil {
		return nil, apperror.Classify("task.list", err)
	}
	return tasks, nil
}

// HandleChange reloads every listener whose member is affected by change.
func (s *Store) HandleChange(change feed.Change) {
	s.mu.Lock()
	var affected []*listener
	for _, l := range s.listeners {
		if change.Affects(l.query.UserID) {
			affected = append(affected, l)
		}
	}
	s.mu.Unlock()

	for _, l := range affected {
		s.reload(l)
	}
}

// Run feeds changes from f into the store until ctx is done.
func (s *Store) Run(ctx context.Context, f feed.Feed) {
	for {
		err := f.Listen(ctx, s.HandleChange)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[TaskStore] Change feed stopped: %v, restarting", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Store) reload(l *listener) {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	l.mu.Lock()
	idle := len(l.consumers) == 0
	l.mu.Unlock()
	if idle {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	tasks, err := s.loader.FindByMember(ctx, l.query.UserID)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	next := Snapshot{Version: l.last.Version + 1}
	if err != nil {
		appErr := apperror.Classify("task.subscribe", err)
		log.WithFields(log.Fields{"user_id": l.query.UserID, "kind": appErr.Kind}).
			Warnf("[TaskStore] Reload failed, keeping last snapshot: %v", err)
		next.Tasks = l.last.Tasks
		next.Error = &SnapshotError{Kind: appErr.Kind, Message: appErr.Error()}
	} else {
		next.Tasks = tasks
	}
	if next.Tasks == nil {
		next.Tasks = []*domain.Task{}
	}
	l.last = next
	l.loaded = true

	for _, consumer := range l.consumers {
		consumer(next)
	}
}
