// Package preference stores small per-user key-value settings such as UI
// toggles, plus bookkeeping written by background jobs.
package preference

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"worksync-backend/pkg/apperror"

	"github.com/redis/go-redis/v9"
)

// LastNotifiedKey holds the time of the most recent reminder sent to a user.
const LastNotifiedKey = "reminder.last_notified_at"

const (
	maxKeyLength   = 64
	maxValueLength = 4096
)

type Store interface {
	Get(ctx context.Context, userID string) (map[string]string, error)
	// Set merges values into the user's preferences. An empty value removes the key.
	Set(ctx context.Context, userID string, values map[string]string) error
	MarkNotified(ctx context.Context, userID string, at time.Time) error
	// LastNotified returns the zero time when no reminder was sent yet.
	LastNotified(ctx context.Context, userID string) (time.Time, error)
}

// Validate checks keys and values before they are written
func Validate(values map[string]string) error {
	for k, v := range values {
		if strings.TrimSpace(k) == "" || len(k) > maxKeyLength {
			return apperror.Invalid("preference.set", "invalid key "+k)
		}
		if len(v) > maxValueLength {
			return apperror.Invalid("preference.set", "value too long for "+k)
		}
	}
	return nil
}

type redisStore struct {
	rc *redis.Client
}

// NewRedisStore keeps each user's preferences in the hash prefs:<userID>.
func NewRedisStore(rc *redis.Client) Store {
	return &redisStore{rc: rc}
}

func key(userID string) string { return "prefs:" + userID }

func (s *redisStore) Get(ctx context.Context, userID string) (map[string]string, error) {
	values, err := s.rc.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, apperror.Classify("preference.get", err)
	}
	return values, nil
}

func (s *redisStore) Set(ctx context.Context, userID string, values map[string]string) error {
	if err := Validate(values); err != nil {
		return err
	}
	var set []interface{}
	var del []string
	for k, v := range values {
		if v == "" {
			del = append(del, k)
			continue
		}
		set = append(set, k, v)
	}

	pipe := s.rc.TxPipeline()
	if len(set) > 0 {
		pipe.HSet(ctx, key(userID), set...)
	}
	if len(del) > 0 {
		pipe.HDel(ctx, key(userID), del...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperror.Classify("preference.set", err)
	}
	return nil
}

func (s *redisStore) MarkNotified(ctx context.Context, userID string, at time.Time) error {
	err := s.rc.HSet(ctx, key(userID), LastNotifiedKey, at.UTC().Format(time.RFC3339)).Err()
	if err != nil {
		return apperror.Classify("preference.mark_notified", err)
	}
	return nil
}

func (s *redisStore) LastNotified(ctx context.Context, userID string) (time.Time, error) {
	raw, err := s.rc.HGet(ctx, key(userID), LastNotifiedKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, apperror.Classify("preference.last_notified", err)
	}
	return parseTime(raw), nil
}

type memoryStore struct {
	mu    sync.RWMutex
	prefs map[string]map[string]string
}

// NewMemoryStore is used when redis is not configured.
func NewMemoryStore() Store {
	return &memoryStore{prefs: make(map[string]map[string]string)}
}

func (s *memoryStore) Get(ctx context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.prefs[userID]))
	for k, v := range s.prefs[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) Set(ctx context.Context, userID string, values map[string]string) error {
	if err := Validate(values); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs[userID] == nil {
		s.prefs[userID] = make(map[string]string)
	}
	for k, v := range values {
		if v == "" {
			delete(s.prefs[userID], k)
			continue
		}
		s.prefs[userID][k] = v
	}
	return nil
}

func (s *memoryStore) MarkNotified(ctx context.Context, userID string, at time.Time) error {
	return s.Set(ctx, userID, map[string]string{LastNotifiedKey: at.UTC().Format(time.RFC3339)})
}

func (s *memoryStore) LastNotified(ctx context.Context, userID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return parseTime(s.prefs[userID][LastNotifiedKey]), nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
