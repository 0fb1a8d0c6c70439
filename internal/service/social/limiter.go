package social

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// toggleLimiter rate-limits follow toggles per acting user. It bounds
// retry and contention load from toggle storms on one pair; the
// transaction itself is the correctness guarantee. State is explicit
// and owned by the service, never process-global.
type toggleLimiter struct {
	mu       sync.Mutex
	limiters map[uint64]*limiterEntry
	rate     rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newToggleLimiter(perSecond float64, burst int) *toggleLimiter {
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = 2
	}
	return &toggleLimiter{
		limiters: make(map[uint64]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow checks whether the actor may toggle now.
func (tl *toggleLimiter) Allow(actorID uint64) bool {
	tl.mu.Lock()
	entry, ok := tl.limiters[actorID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(tl.rate, tl.burst)}
		tl.limiters[actorID] = entry
	}
	entry.lastAccess = time.Now()

	// Opportunistic prune of stale actors; keeps the map bounded
	// without a janitor goroutine.
	if len(tl.limiters) > 4096 {
		cutoff := time.Now().Add(-time.Hour)
		for id, e := range tl.limiters {
			if e.lastAccess.Before(cutoff) {
				delete(tl.limiters, id)
			}
		}
	}
	limiter := entry.limiter
	tl.mu.Unlock()

	return limiter.Allow()
}
