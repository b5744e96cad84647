package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"propflow/api/internal/cache"
)

const (
	GlobalLimitMessage = "Too many requests. Please try again later."
	ChatLimitMessage   = "Too many chat requests. Please slow down."

	limiterIdleTTL       = 30 * time.Minute
	limiterSweepInterval = 10 * time.Minute
)

// WindowLimitMiddleware allows max requests per client IP in each fixed
// window. Counts live in the shared counter so every API process sees the
// same totals. A counter failure lets the request through.
func WindowLimitMiddleware(counter cache.WindowCounter, window time.Duration, max int) gin.HandlerFunc {
	limit := strconv.Itoa(max)
	return func(c *gin.Context) {
		hits, reset, err := counter.Hit(c.Request.Context(), c.ClientIP(), window)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "Rate limit counter unavailable", "error", err)
			c.Next()
			return
		}

		resetSeconds := strconv.Itoa(int(math.Ceil(reset.Seconds())))
		remaining := int64(max) - hits
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", limit)
		c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("RateLimit-Reset", resetSeconds)

		if hits > int64(max) {
			c.Header("Retry-After", resetSeconds)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": GlobalLimitMessage})
			return
		}
		c.Next()
	}
}

// clientLimiter stores the token bucket of one client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one in-memory token bucket per client IP.
type TokenBucketLimiter struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	message string
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewChatRateLimiter allows perMinute chat requests per client with the given
// burst. Close stops the background sweep.
func NewChatRateLimiter(perMinute, burst int) *TokenBucketLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = perMinute
	}
	tl := &TokenBucketLimiter{
		clients: make(map[string]*clientLimiter),
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		message: ChatLimitMessage,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go tl.cleanupClients()
	return tl
}

func (tl *TokenBucketLimiter) getClientLimiter(key string) *rate.Limiter {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	cl, exists := tl.clients[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(tl.every, tl.burst)}
		tl.clients[key] = cl
	}
	cl.lastSeen = tl.now()
	return cl.limiter
}

// sweep removes clients not seen within limiterIdleTTL and reports how many.
func (tl *TokenBucketLimiter) sweep() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	count := 0
	for key, cl := range tl.clients {
		if tl.now().Sub(cl.lastSeen) > limiterIdleTTL {
			delete(tl.clients, key)
			count++
		}
	}
	return count
}

func (tl *TokenBucketLimiter) cleanupClients() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-tl.stop:
			return
		case <-ticker.C:
			if n := tl.sweep(); n > 0 {
				slog.Debug("Rate limiter cleanup removed idle clients", "count", n)
			}
		}
	}
}

func (tl *TokenBucketLimiter) Close() {
	tl.once.Do(func() { close(tl.stop) })
}

// Limit creates the Gin middleware handler.
func (tl *TokenBucketLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !tl.getClientLimiter(key).AllowN(tl.now(), 1) {
			slog.WarnContext(c.Request.Context(), "Chat rate limit exceeded", "client_ip", key)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": tl.message})
			return
		}
		c.Next()
	}
}
