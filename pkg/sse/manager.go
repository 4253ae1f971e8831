package sse

import (
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const clientBuffer = 32

// Event is a single named SSE message.
type Event struct {
	Name string
	Data interface{}
}

// Client is one open event stream.
type Client struct {
	ID     string
	UserID string
	events chan Event

	// latest holds events where only the newest value matters, by name.
	mu     sync.Mutex
	latest map[string]Event
	order  []string
	wake   chan struct{}
}

func (c *Client) takeLatest() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.latest[name])
	}
	c.latest = make(map[string]Event)
	c.order = c.order[:0]
	return out
}

// Manager fans events out to every open stream of a user.
type Manager struct {
	mu        sync.RWMutex
	clients   map[string]map[*Client]struct{}
	heartbeat time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func NewManager() *Manager {
	return &Manager{
		clients:   make(map[string]map[*Client]struct{}),
		heartbeat: 25 * time.Second,
		stopChan:  make(chan struct{}),
	}
}

// Run sends keep-alive pings until Stop is called.
func (m *Manager) Run() {
	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.broadcast(Event{Name: "ping", Data: time.Now().Unix()})
		case <-m.stopChan:
			return
		}
	}
}

// Stop ends the heartbeat and closes every open stream.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		defer m.mu.Unlock()
		for userID, set := range m.clients {
			for client := range set {
				close(client.events)
			}
			delete(m.clients, userID)
		}
		log.Println("[SSE] Manager stopped, all streams closed")
	})
}

func (m *Manager) Register(userID string) *Client {
	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		events: make(chan Event, clientBuffer),
		latest: make(map[string]Event),
		wake:   make(chan struct{}, 1),
	}

	m.mu.Lock()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[*Client]struct{})
	}
	m.clients[userID][client] = struct{}{}
	m.mu.Unlock()

	log.Printf("[SSE] Client %s connected for user %s", client.ID, userID)
	return client
}

func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
	close(client.events)
	log.Printf("[SSE] Client %s disconnected", client.ID)
}

// SendToUser delivers an event to every stream the user has open.
func (m *Manager) SendToUser(userID, event string, data interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for client := range m.clients[userID] {
		m.deliver(client, Event{Name: event, Data: data})
	}
}

// SendLatest queues an event for a single stream, replacing any event of the
// same name the stream has not written yet. It never drops the newest value.
func (m *Manager) SendLatest(client *Client, event string, data interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.clients[client.UserID][client]; !ok {
		return
	}

	client.mu.Lock()
	if _, queued := client.latest[event]; !queued {
		client.order = append(client.order, event)
	}
	client.latest[event] = Event{Name: event, Data: data}
	client.mu.Unlock()

	select {
	case client.wake <- struct{}{}:
	default:
	}
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, set := range m.clients {
		n += len(set)
	}
	return n
}

func (m *Manager) broadcast(ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, set := range m.clients {
		for client := range set {
			m.deliver(client, ev)
		}
	}
}

// deliver must be called with the read lock held.
func (m *Manager) deliver(client *Client, ev Event) {
	select {
	case client.events <- ev:
	default:
		log.Printf("[SSE] Dropping %s event for slow client %s", ev.Name, client.ID)
	}
}

// Stream writes events for client until it is unregistered or the request ends.
func (m *Manager) Stream(c *gin.Context, client *Client) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-client.events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-client.wake:
			for _, ev := range client.takeLatest() {
				c.SSEvent(ev.Name, ev.Data)
			}
			return true
		case <-ctx.Done():
			return false
		}
	})
}
