// Package feed carries task change notifications between the write path and
// live subscriptions, possibly across server instances.
package feed

import (
	"context"
	"time"
)

// ChangeType says what happened to a task
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change announces that a task changed. MemberIDs lists every user whose view
// is affected: the members before and after the write.
type Change struct {
	Type       ChangeType `json:"type"`
	TaskID     string     `json:"task_id"`
	MemberIDs  []string   `json:"member_ids"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Affects reports whether userID should reload after c
func (c Change) Affects(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Feed publishes changes and delivers them to listeners.
type Feed interface {
	Publish(ctx context.Context, change Change) error
	// Listen blocks, calling handler for every change, until ctx is done.
	Listen(ctx context.Context, handler func(Change)) error
	Close() error
}
