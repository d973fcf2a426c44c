package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key (typically the remote IP),
// each allowing perMinute requests per minute with a burst of perMinute.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	perMinute int
	now       func() time.Time
}

// NewClientLimiter creates a per-client limiter. perMinute ≤ 0 disables limiting.
func NewClientLimiter(perMinute int) *ClientLimiter {
	return &ClientLimiter{
		clients:   make(map[string]*clientEntry),
		perMinute: perMinute,
		now:       time.Now,
	}
}

// Allow reports whether the client identified by key may make a request now.
func (cl *ClientLimiter) Allow(key string) bool {
	if cl.perMinute <= 0 {
		return true
	}

	now := cl.now()
	cl.mu.Lock()
	e, ok := cl.clients[key]
	if !ok {
		e = &clientEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cl.perMinute)), cl.perMinute),
		}
		cl.clients[key] = e
	}
	e.lastSeen = now
	cl.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Prune drops the buckets of clients idle for longer than idle and returns
// how many were removed.
func (cl *ClientLimiter) Prune(idle time.Duration) int {
	cutoff := cl.now().Add(-idle)

	cl.mu.Lock()
	defer cl.mu.Unlock()
	n := 0
	for k, e := range cl.clients {
		if e.lastSeen.Before(cutoff) {
			delete(cl.clients, k)
			n++
		}
	}
	return n
}
