// Package ratelimit throttles requests per caller with token buckets.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store keeps one token bucket per identifier and forgets identifiers that
// have been idle for longer than expiresIn.
type Store struct {
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	expiresIn time.Duration
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func NewStore(perSecond float64, burst int, expiresIn time.Duration) *Store {
	if burst < 1 {
		burst = 1
	}
	return &Store{
		rate:      rate.Limit(perSecond),
		burst:     burst,
		expiresIn: expiresIn,
		visitors:  make(map[string]*visitor),
		now:       time.Now,
	}
}

// Allow reports whether identifier may make a request now.
func (s *Store) Allow(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.expiresIn {
		for id, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.expiresIn {
				delete(s.visitors, id)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.visitors[identifier] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429. identify picks the
// bucket; an empty identifier falls back to the client IP.
func Middleware(store *Store, identify func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identify(c)
		if id == "" {
			id = c.ClientIP()
		}
		if !store.Allow(id) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}
