package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OwnerHeader names the caller on mutating requests.
const OwnerHeader = "X-Owner-ID"

// RateLimiter lets each owner through at most once per limit.
type RateLimiter struct {
	clients   map[string]time.Time
	mu        sync.Mutex
	limit     time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]time.Time),
		limit:   limit,
		now:     time.Now,
	}
}

// Allow records a request from owner and reports whether it may proceed.
func (r *RateLimiter) Allow(owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.prune(now)
	last, exists := r.clients[owner]
	if exists && now.Sub(last) < r.limit {
		return false
	}
	r.clients[owner] = now
	return true
}

// prune forgets owners that have been quiet for longer than the limit.
func (r *RateLimiter) prune(now time.Time) {
	if now.Sub(r.lastPrune) < time.Minute {
		return
	}
	r.lastPrune = now
	for owner, last := range r.clients {
		if now.Sub(last) >= r.limit {
			delete(r.clients, owner)
		}
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(OwnerHeader)
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": OwnerHeader + " header required", "kind": "VALIDATION"})
			return
		}
		if r.limit > 0 && !r.Allow(owner) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Logger writes one line per request.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("owner", c.GetHeader(OwnerHeader)),
		)
	}
}
