package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormTaskRepository implements TaskRepository using GORM on postgres
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) FindByMember(ctx context.Context, userID string) ([]*domain.Task, error) {
	member, err := json.Marshal([]string{userID})
	if err != nil {
		return nil, err
	}

	var tasks []*domain.Task
	err = r.db.WithContext(ctx).
		Where("member_ids @> ?::jsonb", string(member)).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", task.ID).
		Select("*").Omit("id", "created_at").Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("task.update", task.ID)
	}
	return nil
}

func (r *gormTaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("task.update_status", id)
	}
	return nil
}

func (r *gormTaskRepository) UpdatePriorities(ctx context.Context, ids []string, priority int) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.Task{}).Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"priority":   priority,
			"updated_at": time.Now(),
		}).Error
}

func (r *gormTaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("task.delete", id)
	}
	return nil
}
