package signal

import (
	"sync"
	"time"

	"github.com/dkeye/roomrec/internal/domain"
)

// PlayRateLimiter caps play requests per stream in a sliding window, so a
// stream that keeps failing is not re-requested in a tight loop.
type PlayRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.StreamID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewPlayRateLimiter(limit int, interval time.Duration) *PlayRateLimiter {
	return &PlayRateLimiter{
		history:  make(map[domain.StreamID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *PlayRateLimiter) Allow(id domain.StreamID) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[id]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}
	rl.history[id] = append(fresh, now)
	return true
}
