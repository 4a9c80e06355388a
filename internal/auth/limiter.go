package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedLogins bounds the per-username limiter map. Only buckets that
// have refilled are evicted; while every tracked bucket is still draining,
// untracked usernames are refused.
const maxTrackedLogins = 10000

// LoginLimiter throttles login attempts per username with a token bucket.
// A nil *LoginLimiter allows everything.
type LoginLimiter struct {
	limit    rate.Limit
	interval time.Duration
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLoginLimiter allows perMinute attempts per username with the given
// burst. It returns nil when perMinute is not positive.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	interval := time.Minute / time.Duration(perMinute)
	return &LoginLimiter{
		limit:    rate.Every(interval),
		interval: interval,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Reserve takes one attempt for username at now. When the bucket is empty it
// returns false and how long until the next attempt is allowed.
func (l *LoginLimiter) Reserve(username string, now time.Time) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	key := strings.ToLower(strings.TrimSpace(username))

	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedLogins {
			l.evictRefilled(now)
		}
		if len(l.limiters) >= maxTrackedLogins {
			l.mu.Unlock()
			return false, l.interval
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

// evictRefilled drops buckets that are full again at now. Forgetting them
// loses nothing since a new bucket starts full. Callers hold l.mu.
func (l *LoginLimiter) evictRefilled(now time.Time) {
	for key, limiter := range l.limiters {
		if limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}
