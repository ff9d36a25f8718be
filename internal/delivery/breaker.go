package delivery

import (
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

const (
	tripThreshold  = 5
	openCooldown   = 5 * time.Minute
)

// channelBreaker is a single channel's circuit-breaker state, guarded by
// its own mutex so one channel's failures never contend with another's —
// no library in the example pack implements this state machine, so it's
// written as a small mutex-guarded struct in the style of
// internal/ratelimit.Limiter.
type channelBreaker struct {
	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	nextAttempt         time.Time
}

// breakers is the process-wide per-channel registry.
type breakers struct {
	mu    sync.Mutex
	byID  map[string]*channelBreaker
}

func newBreakers() *breakers {
	return &breakers{byID: make(map[string]*channelBreaker)}
}

func (b *breakers) get(channelID string) *channelBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.byID[channelID]
	if !ok {
		cb = &channelBreaker{state: BreakerClosed}
		b.byID[channelID] = cb
	}
	return cb
}

// Admit reports whether a delivery attempt may proceed. A closed breaker
// always admits; an open breaker admits only once its next_attempt has
// passed, transitioning to half_open for that single probe.
func (b *breakers) Admit(channelID string) bool {
	cb := b.get(channelID)
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Now().Before(cb.nextAttempt) {
			return false
		}
		cb.state = BreakerHalfOpen
		return true
	case BreakerHalfOpen:
		// Only one probe at a time is admitted; further callers wait for
		// the probe's outcome to move the breaker back to closed or open.
		return false
	}
	return false
}

// RecordSuccess resets the breaker to closed and zeros its counter, per
// spec.md §4.7: "any success resets to closed and zeros the counter."
func (b *breakers) RecordSuccess(channelID string) {
	cb := b.get(channelID)
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.consecutiveFailures = 0
}

// RecordFailure increments the consecutive-failure counter and trips the
// breaker to open at >= 5, scheduling next_attempt = now + 5m.
func (b *breakers) RecordFailure(channelID string) {
	cb := b.get(channelID)
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	if cb.state == BreakerHalfOpen || cb.consecutiveFailures >= tripThreshold {
		cb.state = BreakerOpen
		cb.nextAttempt = time.Now().Add(openCooldown)
	}
}

func (b *breakers) State(channelID string) BreakerState {
	cb := b.get(channelID)
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
