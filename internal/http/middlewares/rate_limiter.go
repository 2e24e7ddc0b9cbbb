package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window in-process limiter. It guards the public
// auth and availability endpoints against brute force and enumeration; per
// instance is good enough since each replica fronts its own share of
// traffic.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets map[string]*bucket
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		allowed, retryAfter := rl.take(key)

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})
			return
		}

		c.Next()
	}
}

// take consumes one slot for key, returning whether the request may proceed
// and, when it may not, how many seconds until the window resets.
func (rl *RateLimiter) take(key string) (bool, int) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]

	if !ok || now.After(b.windowEnd) {
		// opportunistically drop expired buckets so the map stays bounded
		if len(rl.buckets) > 10_000 {
			for k, old := range rl.buckets {
				if now.After(old.windowEnd) {
					delete(rl.buckets, k)
				}
			}
		}

		rl.buckets[key] = &bucket{count: 1, windowEnd: now.Add(rl.window)}
		return true, 0
	}

	if b.count >= rl.limit {
		retryAfter := int(time.Until(b.windowEnd).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	b.count++
	return true, 0
}

// KeyByIP buckets unauthenticated traffic by client address.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// KeyByUserOrIP prefers the authenticated user id so one noisy user behind
// a shared NAT does not starve everyone else on it.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok && id != "" {
		return "user:" + id
	}
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}

	return ip
}
