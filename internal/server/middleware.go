package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gookie-auctions/internal/metrics"
	"gookie-auctions/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	metrics.HTTPRequestDuration.
		WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
		Observe(time.Since(start).Seconds())

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

const (
	// DefaultClientTTL is how long an idle client's bucket is kept
	DefaultClientTTL = 10 * time.Minute
	// DefaultMaxClients caps the number of tracked clients
	DefaultMaxClients = 10000
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than the client TTL are evicted; when the registry is full the
// least recently seen client is dropped.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	rate       rate.Limit
	burst      int
	ttl        time.Duration
	maxClients int
	now        func() time.Time
}

// LimiterOption customizes a RateLimiter
type LimiterOption func(*RateLimiter)

// WithClientTTL sets how long an idle client's bucket is kept
func WithClientTTL(ttl time.Duration) LimiterOption {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// WithMaxClients caps the number of tracked clients
func WithMaxClients(n int) LimiterOption {
	return func(rl *RateLimiter) { rl.maxClients = n }
}

// NewRateLimiter allows rps requests per second per client with the given burst
func NewRateLimiter(rps float64, burst int, opts ...LimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rate:       rate.Limit(rps),
		burst:      burst,
		ttl:        DefaultClientTTL,
		maxClients: DefaultMaxClients,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= rl.maxClients {
			rl.evictLocked(now)
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictLocked drops idle clients, or the least recently seen one if none is idle
func (rl *RateLimiter) evictLocked(now time.Time) {
	if rl.sweepLocked(now) > 0 {
		return
	}
	var oldestKey string
	var oldest time.Time
	for key, entry := range rl.limiters {
		if oldestKey == "" || entry.lastSeen.Before(oldest) {
			oldestKey, oldest = key, entry.lastSeen
		}
	}
	delete(rl.limiters, oldestKey)
}

func (rl *RateLimiter) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.ttl {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Sweep removes buckets of clients idle for longer than the TTL and reports how many were removed
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.sweepLocked(rl.now())
}

// Clients reports the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// RunCleanup sweeps idle clients every interval until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := rl.Sweep(); removed > 0 {
				utils.Info("evicted idle rate limit buckets", map[string]any{"removed": removed})
			}
		}
	}
}

// Middleware rejects requests over the client's budget with 429
func (rl *RateLimiter) Middleware(c *gin.Context) {
	if !rl.limiter(c.ClientIP()).Allow() {
		utils.Warn("rate limit exceeded", map[string]any{
			"client_ip": c.ClientIP(),
			"path":      c.Request.URL.Path,
		})
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"status":  http.StatusTooManyRequests,
			"message": "too many requests",
			"error":   "rate limit exceeded",
		})
		return
	}
	c.Next()
}
