package server

import (
	"strings"
	"sync"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/cache"
	"github.com/gin-gonic/gin"
)

// rateLimiter is a fixed-window counter per caller, backed by the
// bounded TTL cache so an attacker rotating keys cannot grow memory
// without limit.
type rateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	items  *cache.TTLCache[string, *rateLimitEntry]
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// rateLimiterMaxCallers bounds how many distinct callers are tracked at
// once.
const rateLimiterMaxCallers = 4096

func newRateLimiter(limit int, window time.Duration, maxCallers int) *rateLimiter {
	if maxCallers <= 0 {
		maxCallers = rateLimiterMaxCallers
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		items:  cache.NewTTLCache[string, *rateLimitEntry](maxCallers),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.items.Get(key)
	if !ok || now.Sub(entry.windowStart) > r.window {
		entry = &rateLimitEntry{windowStart: now}
		r.items.Set(key, entry, r.window)
	}
	if entry.count >= r.limit {
		return false
	}
	entry.count++
	return true
}

// RateLimit throttles by API key when present, by client address
// otherwise.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("Authorization"))
		if key == "" {
			key = c.ClientIP()
		}
		if !s.limiter.Allow(key) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
