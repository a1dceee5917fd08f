package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"jobassist/internal/shared/metrics"
	"jobassist/internal/shared/server/respond"
)

// Request groups. Routes that call the assistant backend spend its quota, so
// they get a tighter budget than routes served from local state.
const (
	GroupLocal   = "local"
	GroupBackend = "backend"
)

const (
	// A bucket untouched this long has refilled and can be forgotten.
	idleBucketTTL = 10 * time.Minute
	sweepInterval = 1024
)

// Quota allows PerSecond requests on average with bursts up to Burst.
// A zero field disables limiting.
type Quota struct {
	PerSecond float64
	Burst     int
}

func (q Quota) unlimited() bool { return q.PerSecond <= 0 || q.Burst <= 0 }

// ThrottleOptions configures Throttle. Groups without a quota are not limited.
type ThrottleOptions struct {
	Quotas   map[string]Quota
	Classify func(*gin.Context) string
	Limiter  *RateLimiter
}

type clientKey struct {
	ip    string
	group string
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// take refills the bucket for the time since it was last seen and spends one
// token. It returns how long to wait when none is left, or zero.
func (b *bucket) take(now time.Time, q Quota) time.Duration {
	if dt := now.Sub(b.seen).Seconds(); dt > 0 {
		b.tokens = math.Min(float64(q.Burst), b.tokens+dt*q.PerSecond)
		b.seen = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	wait := (1 - b.tokens) / q.PerSecond
	return time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// RateLimiter keeps a token bucket per client address and group.
type RateLimiter struct {
	mu      sync.Mutex
	clock   func() time.Time
	buckets map[clientKey]*bucket
	takes   int
}

// NewRateLimiter returns a limiter reading time from clock; nil means time.Now.
func NewRateLimiter(clock func() time.Time) *RateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimiter{clock: clock, buckets: make(map[clientKey]*bucket)}
}

// Take spends one of ip's tokens in group. A zero result means the request may proceed.
func (l *RateLimiter) Take(ip, group string, q Quota) time.Duration {
	if l == nil || q.unlimited() {
		return 0
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.takes++
	if l.takes%sweepInterval == 0 {
		l.sweep(now)
	}
	key := clientKey{ip: ip, group: group}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: float64(q.Burst), seen: now}
		l.buckets[key] = b
	}
	return b.take(now, q)
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > idleBucketTTL {
			delete(l.buckets, key)
		}
	}
}

// Len reports how many buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Throttle answers requests beyond their group's quota with 429 rate_limited
// and a Retry-After header.
func Throttle(opts ThrottleOptions) gin.HandlerFunc {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		group := GroupLocal
		if opts.Classify != nil {
			if g := opts.Classify(c); g != "" {
				group = g
			}
		}
		q, ok := opts.Quotas[group]
		if !ok {
			c.Next()
			return
		}
		wait := limiter.Take(c.ClientIP(), group, q)
		if wait <= 0 {
			c.Next()
			return
		}
		metrics.IncThrottled(group)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		respond.Error(c, http.StatusTooManyRequests, respond.CodeRateLimited, "too many requests, slow down", gin.H{
			"group":        group,
			"retryAfterMs": wait.Milliseconds(),
		})
		c.Abort()
	}
}

func retryAfterSeconds(wait time.Duration) int {
	if s := int(math.Ceil(wait.Seconds())); s > 1 {
		return s
	}
	return 1
}
