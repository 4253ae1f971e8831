package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"worksync-backend/internal/task/domain"
	"worksync-backend/pkg/cache"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	memberKeyPrefix  = "tasks:member:"
	versionKeyPrefix = "tasks:version:"
)

// cachedTaskRepository serves FindByMember from redis and evicts the cached
// lists of every affected member on writes. Each eviction bumps the member's
// version, and a list read before the bump is never written back.
type cachedTaskRepository struct {
	base  TaskRepository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedTaskRepository wraps base with a redis read cache
func NewCachedTaskRepository(base TaskRepository, client *redis.Client, ttl time.Duration) TaskRepository {
	if base == nil {
		panic("repository.NewCachedTaskRepository: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &cachedTaskRepository{base: base, redis: client, ttl: ttl}
}

func (c *cachedTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := c.base.Create(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.MemberIDs...)
	return nil
}

func (c *cachedTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.FindByID(ctx, id)
}

func (c *cachedTaskRepository) FindByMember(ctx context.Context, userID string) ([]*domain.Task, error) {
	var cached []*domain.Task
	ok, err := cache.GetJSON(ctx, c.redis, memberKeyPrefix+userID, &cached)
	if err != nil {
		log.Printf("[TaskCache] Read failed for user %s: %v", userID, err)
	} else if ok {
		return cached, nil
	}

	version, err := c.version(ctx, c.redis, userID)
	if err != nil {
		log.Printf("[TaskCache] Version read failed for user %s: %v", userID, err)
	}
	tasks, err := c.base.FindByMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if version >= 0 {
		c.store(ctx, userID, version, tasks)
	}
	return tasks, nil
}

// store caches tasks only if no write touched userID since version was read.
func (c *cachedTaskRepository) store(ctx context.Context, userID string, version int64, tasks []*domain.Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		log.Printf("[TaskCache] Encode failed for user %s: %v", userID, err)
		return
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != version {
			return redis.TxFailedErr
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, memberKeyPrefix+userID, data, c.ttl)
			return nil
		})
		return err
	}, versionKeyPrefix+userID)
	if errors.Is(err, redis.TxFailedErr) {
		log.Debugf("[TaskCache] List for user %s changed while loading, not caching", userID)
		return
	}
	if err != nil {
		log.Printf("[TaskCache] Write failed for user %s: %v", userID, err)
	}
}

// version returns -1 when it cannot be read.
func (c *cachedTaskRepository) version(ctx context.Context, rc redis.Cmdable, userID string) (int64, error) {
	v, err := rc.Get(ctx, versionKeyPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return -1, err
	}
	return v, nil
}

func (c *cachedTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	previous := c.membersOf(ctx, task.ID)
	if err := c.base.Update(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, append(previous, task.MemberIDs...)...)
	return nil
}

func (c *cachedTaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	members := c.membersOf(ctx, id)
	if err := c.base.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	c.evict(ctx, members...)
	return nil
}

func (c *cachedTaskRepository) UpdatePriorities(ctx context.Context, ids []string, priority int) error {
	var members []string
	for _, id := range ids {
		members = append(members, c.membersOf(ctx, id)...)
	}
	if err := c.base.UpdatePriorities(ctx, ids, priority); err != nil {
		return err
	}
	c.evict(ctx, members...)
	return nil
}

func (c *cachedTaskRepository) Delete(ctx context.Context, id string) error {
	members := c.membersOf(ctx, id)
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, members...)
	return nil
}

func (c *cachedTaskRepository) membersOf(ctx context.Context, id string) []string {
	task, err := c.base.FindByID(ctx, id)
	if err != nil || task == nil {
		return nil
	}
	return task.MemberIDs
}

func (c *cachedTaskRepository) evict(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, versionKeyPrefix+id)
			pipe.Del(ctx, memberKeyPrefix+id)
		}
		return nil
	})
	if err != nil {
		log.Printf("[TaskCache] Evict failed: %v", err)
	}
}
