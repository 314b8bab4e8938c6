package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key (client IP, API key). Buckets idle
// longer than idleTTL are dropped on the next sweep.
type Limiter struct {
	mu      sync.Mutex
	m       map[string]*entry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:       make(map[string]*entry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether one request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = e
	}
	e.lastSeen = now
	lim := e.limiter
	l.mu.Unlock()

	return lim.AllowN(now, 1)
}

// Sweep removes idle buckets and returns how many were dropped.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.m {
		if e.lastSeen.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}
