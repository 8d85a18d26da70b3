package ai

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const minSweepInterval = time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out one token bucket per user. Buckets idle long enough to
// have refilled are dropped, since a fresh bucket behaves the same.
type Limiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
	buckets   map[string]*bucket
}

// NewLimiter allows perMinute requests per user with the given burst.
// A non-positive perMinute disables limiting.
func NewLimiter(perMinute float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := rate.Inf
	idle := minSweepInterval
	if perMinute > 0 {
		every := time.Duration(float64(time.Minute) / perMinute)
		l = rate.Every(every)
		// time for an empty bucket to fill up again
		if refill := time.Duration(burst) * every; refill > idle {
			idle = refill
		}
	}
	return &Limiter{
		limit:   l,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *Limiter) Allow(userID string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for id, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, id)
		}
	}
}
