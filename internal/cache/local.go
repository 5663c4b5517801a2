package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is an in-process per-IP token bucket used when Redis is not configured.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	idleTTL  time.Duration
	now      func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a LocalLimiter. Buckets idle longer than idleTTL are dropped.
func NewLocalLimiter(idleTTL time.Duration) *LocalLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// CheckIPRateLimit mirrors Cache.CheckIPRateLimit.
func (l *LocalLimiter) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst <= 0 {
		return nil, ErrInvalidRate
	}
	now := l.now()

	l.mu.Lock()
	l.sweep(now)
	key := hashIP(ip)
	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	res := entry.limiter.ReserveN(now, 1)
	if !res.OK() {
		return &RateLimitResult{Allowed: false, ResetAt: now.Add(time.Second), RetryAfter: time.Second}, nil
	}

	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
		return &RateLimitResult{
			Allowed:    false,
			ResetAt:    now.Add(delay),
			RetryAfter: time.Duration(math.Ceil(delay.Seconds())) * time.Second,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(entry.limiter.TokensAt(now)),
		ResetAt:   now.Add(time.Second / time.Duration(ratePerSecond)),
	}, nil
}

// Len returns the number of tracked clients.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalLimiter) sweep(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, k)
		}
	}
}
