package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/milktracker/internal/server/handlers"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{entries: make(map[string]*window), now: time.Now}
}

// Allow returns true if key has not exceeded limit within the current window.
func (rl *RateLimiter) Allow(key string, limit int, period time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[key]
	if !ok || now.After(e.resetAt) {
		rl.entries[key] = &window{count: 1, resetAt: now.Add(period)}
		return true
	}
	e.count++
	return e.count <= limit
}

// Cleanup removes expired windows.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, e := range rl.entries {
		if now.After(e.resetAt) {
			delete(rl.entries, key)
		}
	}
}

// RateLimit limits each client IP to limit requests per period. The key is
// gin's ClientIP, so forwarding headers only count when the engine trusts the
// sending proxy.
func RateLimit(limiter *RateLimiter, limit int, period time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP(), limit, period) {
			handlers.RespondError(c, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		c.Next()
	}
}
