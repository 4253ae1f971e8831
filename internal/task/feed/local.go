package feed

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// LocalFeed delivers changes to listeners in the same process.
type LocalFeed struct {
	mu        sync.RWMutex
	listeners map[int]chan Change
	nextID    int
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[int]chan Change)}
}

func (f *LocalFeed) Publish(ctx context.Context, change Change) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for id, ch := range f.listeners {
		select {
		case ch <- change:
		default:
			log.Printf("[Feed] Listener %d is full, dropping change for task %s", id, change.TaskID)
		}
	}
	return ctx.Err()
}

func (f *LocalFeed) Listen(ctx context.Context, handler func(Change)) error {
	ch := make(chan Change, 64)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = ch
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-ch:
			handler(change)
		}
	}
}

func (f *LocalFeed) Close() error { return nil }
