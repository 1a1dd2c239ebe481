package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	cleanupInterval = 5 * time.Minute
	staleAfter      = 10 * time.Minute
)

type rateLimitEntry struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-client token bucket.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*rateLimitEntry
	maxTokens  float64
	refillRate float64 // tokens per second
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewRateLimiter allows bursts of maxRequests, refilled evenly over perDuration.
func NewRateLimiter(maxRequests int, perDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:    make(map[string]*rateLimitEntry),
		maxTokens:  float64(maxRequests),
		refillRate: float64(maxRequests) / perDuration.Seconds(),
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.clients {
		if now.Sub(entry.lastCheck) > staleAfter {
			delete(rl.clients, key)
		}
	}
}

// allow takes a token for key. When the bucket is empty it reports how long until the
// next token.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.clients[key]
	if !exists {
		rl.clients[key] = &rateLimitEntry{tokens: rl.maxTokens - 1, lastCheck: now}
		return true, 0
	}

	elapsed := now.Sub(entry.lastCheck).Seconds()
	entry.tokens = math.Min(rl.maxTokens, entry.tokens+elapsed*rl.refillRate)
	entry.lastCheck = now

	if entry.tokens >= 1 {
		entry.tokens--
		return true, 0
	}

	wait := time.Duration((1 - entry.tokens) / rl.refillRate * float64(time.Second))
	return false, wait
}

// Middleware limits requests per client IP and sets Retry-After on 429 responses.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := rl.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Demasiadas solicitudes. Inténtalo de nuevo más tarde."})
			c.Abort()
			return
		}
		c.Next()
	}
}
