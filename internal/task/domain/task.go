package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the column a task sits in
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "Backlog"
	StatusTodo       TaskStatus = "To-Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusReview     TaskStatus = "Review"
	StatusCompleted  TaskStatus = "Completed"
	// StatusPending marks an assignment the assignee has not accepted yet
	StatusPending TaskStatus = "Pending"
)

// BoardStatuses are the fixed board columns, in display order
var BoardStatuses = []TaskStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusCompleted, StatusPending:
		return true
	}
	return false
}

// ParseStatus accepts the display names as well as the usual slug spellings
func ParseStatus(s string) (TaskStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "backlog":
		return StatusBacklog, nil
	case "todo":
		return StatusTodo, nil
	case "inprogress":
		return StatusInProgress, nil
	case "review":
		return StatusReview, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "pending":
		return StatusPending, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// PriorityBand groups the numeric priorities
type PriorityBand string

const (
	BandHigh   PriorityBand = "high"
	BandMedium PriorityBand = "medium"
	BandLow    PriorityBand = "low"
)

// BandOf maps 1-3 to high, 4-7 to medium and 8-10 to low
func BandOf(priority int) PriorityBand {
	switch {
	case priority <= 3:
		return BandHigh
	case priority <= 7:
		return BandMedium
	default:
		return BandLow
	}
}

// Task is a shared work item. Every user in MemberIDs can read and write it.
type Task struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	Title       string      `json:"title" gorm:"not null" validate:"required,max=200"`
	Description string      `json:"description,omitempty"`
	Status      TaskStatus  `json:"status" gorm:"index;not null;default:Backlog" validate:"taskstatus"`
	Priority    int         `json:"priority" gorm:"not null;default:5" validate:"min=1,max=10"`
	Tags        StringArray `json:"tags" gorm:"type:jsonb"`
	DueDate     *time.Time  `json:"due_date,omitempty" gorm:"index"`
	OwnerID     string      `json:"owner_id" gorm:"index;not null" validate:"required"`
	AssigneeID  string      `json:"assignee_id" gorm:"index;not null" validate:"required"`
	MemberIDs   StringArray `json:"member_ids" gorm:"type:jsonb"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// EnsureMembers defaults the assignee to the owner and makes MemberIDs
// contain both of them.
func (t *Task) EnsureMembers() {
	if t.AssigneeID == "" {
		t.AssigneeID = t.OwnerID
	}
	members := make([]string, 0, len(t.MemberIDs)+2)
	members = append(members, t.OwnerID)
	members = append(members, t.AssigneeID)
	members = append(members, t.MemberIDs...)
	t.MemberIDs = StringArray(dedupe(members))
}

func (t *Task) IsMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops userID from MemberIDs unless it is the owner or assignee
func (t *Task) RemoveMember(userID string) {
	if userID == t.OwnerID || userID == t.AssigneeID {
		return
	}
	kept := t.MemberIDs[:0]
	for _, id := range t.MemberIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	t.MemberIDs = kept
}

// DueWithin reports whether the due date lies within window of now, either side
func (t *Task) DueWithin(now time.Time, window time.Duration) bool {
	if t.DueDate == nil {
		return false
	}
	diff := t.DueDate.Sub(now)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

// Clone returns a copy that shares no slices with t
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = append(StringArray(nil), t.Tags...)
	c.MemberIDs = append(StringArray(nil), t.MemberIDs...)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}

// NormalizeTags trims tags and drops empty and repeated ones, keeping order
func NormalizeTags(tags []string) StringArray {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return StringArray(dedupe(cleaned))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
