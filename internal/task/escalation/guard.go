package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionGuard lets a piece of work run once per login session.
type SessionGuard interface {
	// Claim returns true the first time it is called for a session.
	Claim(ctx context.Context, userID, sessionID string) (bool, error)
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard claims sessions with SETNX so every server instance agrees.
// ttl should cover the session lifetime.
func NewRedisGuard(client *redis.Client, ttl time.Duration) SessionGuard {
	return &redisGuard{client: client, ttl: ttl}
}

func (g *redisGuard) Claim(ctx context.Context, userID, sessionID string) (bool, error) {
	return g.client.SetNX(ctx, guardKey(userID, sessionID), time.Now().Unix(), g.ttl).Result()
}

type memoryGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	claimed map[string]time.Time
}

// NewMemoryGuard is the single instance fallback used without redis.
func NewMemoryGuard(ttl time.Duration) SessionGuard {
	return &memoryGuard{ttl: ttl, claimed: make(map[string]time.Time)}
}

func (g *memoryGuard) Claim(ctx context.Context, userID, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for key, expires := range g.claimed {
		if now.After(expires) {
			delete(g.claimed, key)
		}
	}
	key := guardKey(userID, sessionID)
	if _, ok := g.claimed[key]; ok {
		return false, nil
	}
	g.claimed[key] = now.Add(g.ttl)
	return true, nil
}

func guardKey(userID, sessionID string) string {
	return "escalation:" + userID + ":" + sessionID
}
