package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/apperr"
	"golang.org/x/time/rate"
)

const (
	minLimiterIdle = 10 * time.Minute
	maxLimiterIdle = 24 * time.Hour
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client. Authenticated callers are
// keyed by subject, anonymous ones by IP. Buckets idle for longer than a
// full refill are dropped, since a fresh bucket behaves the same.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}

	idle := minLimiterIdle
	if perSecond > 0 {
		refill := math.Min(float64(burst)/perSecond, maxLimiterIdle.Seconds())
		if d := time.Duration(refill * float64(time.Second)); d > idle {
			idle = d
		}
	}

	return &RateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   idle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// allow takes a token from key's bucket, creating the bucket on first use
func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.evictIdle(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *RateLimiter) evictIdle(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CallerID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !l.allow(key) {
			retryAfter := 1
			if l.rate > 0 {
				retryAfter = int(math.Ceil(1 / float64(l.rate)))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Error(apperr.TooManyRequests("Rate limit exceeded. Please wait before trying again."))
			c.Abort()
			return
		}

		c.Next()
	}
}
