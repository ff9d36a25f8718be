package delivery

import (
	"sync"
	"time"
)

// channelRateLimiter is the sliding-60s-window send-timestamp tracker
// spec.md §4.7/§5 describes. It is deliberately in-process state, not
// Redis-backed like the HTTP ingest limiter in internal/ratelimit — the
// window is per-channel-id process state, not cross-request rate
// limiting shared across replicas.
type channelRateLimiter struct {
	mu         sync.Mutex
	timestamps map[string][]time.Time
}

func newChannelRateLimiter() *channelRateLimiter {
	return &channelRateLimiter{timestamps: make(map[string][]time.Time)}
}

// Allow reports whether channelID has sent fewer than limit deliveries in
// the trailing 60s window; it does not itself record the send — callers
// must call Record only after a delivery actually succeeds or is attempted,
// per spec.md's invariant (v): "Rate limits are evaluated per channel id
// in a sliding 60-second window."
func (r *channelRateLimiter) Allow(channelID string, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-60 * time.Second)
	kept := r.timestamps[channelID][:0]
	for _, t := range r.timestamps[channelID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.timestamps[channelID] = kept
	return len(kept) < limit
}

func (r *channelRateLimiter) Record(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timestamps[channelID] = append(r.timestamps[channelID], time.Now())
}

func (r *channelRateLimiter) ActiveCount(channelID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-60 * time.Second)
	count := 0
	for _, t := range r.timestamps[channelID] {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}
