package middleware

import (
	"sync"
	"time"

	"notifyhub/internal/common"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleBucketTTL is how long a caller's bucket survives without traffic.
const idleBucketTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies one token bucket per API caller. Callers are keyed by
// API key fingerprint, or client IP when no key is sent. Recipients are not
// limited here.
type RateLimiter struct {
	rate  rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps sustained requests per caller with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// allow takes a token from caller's bucket, creating it on first use.
func (rl *RateLimiter) allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	b, ok := rl.buckets[caller]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[caller] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweepLocked drops idle buckets at most once per idleBucketTTL.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < idleBucketTTL {
		return
	}
	for caller, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= idleBucketTTL {
			delete(rl.buckets, caller)
		}
	}
	rl.lastSweep = now
}

func callerKey(c *gin.Context) string {
	if key := c.GetHeader(apiKeyHeader); key != "" {
		return "key:" + fingerprint(key)
	}
	return "ip:" + c.ClientIP()
}

// Middleware rejects over-budget requests with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(callerKey(c)) {
			common.HandleError(c, &common.RateLimitedError{})
			c.Abort()
			return
		}
		c.Next()
	}
}
