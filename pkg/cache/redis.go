package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"worksync-backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to cfg.RedisAddr and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ADDR is not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// GetJSON decodes the value stored at key into dst. ok is false on a miss.
func GetJSON(ctx context.Context, rc *redis.Client, key string, dst any) (bool, error) {
	raw, err := rc.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v at key. A zero ttl keeps the key without expiry.
func SetJSON(ctx context.Context, rc *redis.Client, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return rc.Set(ctx, key, data, ttl).Err()
}
