// Package board derives the Kanban view from a user's task list and turns
// drag-and-drop events into task writes. Nothing here touches storage; a
// column position is always derived from the sort order, never stored.
package board

import (
	"sort"
	"strings"

	"worksync-backend/internal/task/domain"
	"worksync-backend/pkg/fuzzy"
)

// Filter is the UI filter state.
type Filter struct {
	// Search is matched case-insensitively against title, description and tags.
	Search string
	// Statuses restricts the visible columns. Empty means all.
	Statuses []domain.TaskStatus
	// Tags keeps tasks carrying at least one of these tags. Empty means all.
	Tags []string
	// FocusHighPriority keeps only tasks in the high priority band.
	FocusHighPriority bool
	// Fuzzy makes Search tolerate typos.
	Fuzzy bool
}

type Column struct {
	ID    domain.TaskStatus `json:"id"`
	Title string            `json:"title"`
	Tasks []*domain.Task    `json:"tasks"`
}

type Board struct {
	Columns []Column `json:"columns"`
	Total   int      `json:"total"`
}

// Project filters tasks, sorts them by ascending priority and groups them
// into the fixed board columns. Pending tasks are never shown.
func Project(tasks []*domain.Task, f Filter) Board {
	visible := Visible(tasks, f)

	byStatus := make(map[domain.TaskStatus][]*domain.Task, len(domain.BoardStatuses))
	for _, t := range visible {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	b := Board{Columns: make([]Column, 0, len(domain.BoardStatuses)), Total: len(visible)}
	for _, status := range domain.BoardStatuses {
		col := byStatus[status]
		if col == nil {
			col = []*domain.Task{}
		}
		b.Columns = append(b.Columns, Column{ID: status, Title: string(status), Tasks: col})
	}
	return b
}

// Visible returns the tasks that pass f, in board order.
func Visible(tasks []*domain.Task, f Filter) []*domain.Task {
	statuses := make(map[domain.TaskStatus]bool, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = true
	}

	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == domain.StatusPending {
			continue
		}
		if len(statuses) > 0 && !statuses[t.Status] {
			continue
		}
		if f.FocusHighPriority && domain.BandOf(t.Priority) != domain.BandHigh {
			continue
		}
		if len(f.Tags) > 0 && !hasAnyTag(t, f.Tags) {
			continue
		}
		if f.Search != "" && !matches(t, f.Search, f.Fuzzy) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Inbox returns the unaccepted assignments waiting for userID, oldest first.
func Inbox(tasks []*domain.Task, userID string) []*domain.Task {
	out := []*domain.Task{}
	for _, t := range tasks {
		if t.Status == domain.StatusPending && t.AssigneeID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func hasAnyTag(t *domain.Task, tags []string) bool {
	for _, want := range tags {
		for _, have := range t.Tags {
			if fuzzy.Normalize(have) == fuzzy.Normalize(want) {
				return true
			}
		}
	}
	return false
}

func matches(t *domain.Task, search string, tolerant bool) bool {
	fields := append([]string{t.Title, t.Description}, t.Tags...)
	if tolerant {
		return fuzzy.MatchAny(search, fields...)
	}
	q := fuzzy.Normalize(search)
	for _, field := range fields {
		if strings.Contains(fuzzy.Normalize(field), q) {
			return true
		}
	}
	return false
}
