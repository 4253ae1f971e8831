package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/pkg/apperror"

	"github.com/google/uuid"
)

// memoryTaskRepository keeps tasks in process memory. Used when no database
// is configured and by tests.
type memoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
	seq   int64
	order map[string]int64
}

// NewMemoryTaskRepository creates an empty in-memory TaskRepository
func NewMemoryTaskRepository() TaskRepository {
	return &memoryTaskRepository{
		tasks: make(map[string]*domain.Task),
		order: make(map[string]int64),
	}
}

func (r *memoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if _, exists := r.tasks[task.ID]; exists {
		return apperror.Invalid("task.create", "duplicate id "+task.ID)
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	r.seq++
	r.order[task.ID] = r.seq
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *memoryTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	return task.Clone(), nil
}

func (r *memoryTaskRepository) FindByMember(ctx context.Context, userID string) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*domain.Task
	for _, task := range r.tasks {
		if task.IsMember(userID) {
			tasks = append(tasks, task.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return r.order[tasks[i].ID] < r.order[tasks[j].ID]
	})
	return tasks, nil
}

func (r *memoryTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[task.ID]
	if !ok {
		return apperror.NotFound("task.update", task.ID)
	}
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = time.Now()
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *memoryTaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return apperror.NotFound("task.update_status", id)
	}
	task.Status = status
	task.UpdatedAt = time.Now()
	return nil
}

func (r *memoryTaskRepository) UpdatePriorities(ctx context.Context, ids []string, priority int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		if task, ok := r.tasks[id]; ok {
			task.Priority = priority
			task.UpdatedAt = now
		}
	}
	return nil
}

func (r *memoryTaskRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return apperror.NotFound("task.delete", id)
	}
	delete(r.tasks, id)
	delete(r.order, id)
	return nil
}
