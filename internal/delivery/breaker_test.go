package delivery

import (
	"testing"
	"time"
)

func TestBreaker_StartsClosedAndAdmits(t *testing.T) {
	b := newBreakers()
	if !b.Admit("ch-1") {
		t.Error("expected a fresh breaker to admit")
	}
	if b.State("ch-1") != BreakerClosed {
		t.Errorf("expected BreakerClosed, got %s", b.State("ch-1"))
	}
}

func TestBreaker_TripsOpenAfterThreshold(t *testing.T) {
	b := newBreakers()
	for i := 0; i < tripThreshold; i++ {
		b.RecordFailure("ch-1")
	}
	if b.State("ch-1") != BreakerOpen {
		t.Errorf("expected breaker to trip open after %d failures, got %s", tripThreshold, b.State("ch-1"))
	}
	if b.Admit("ch-1") {
		t.Error("expected an open breaker to refuse admission before its cooldown elapses")
	}
}

func TestBreaker_BelowThresholdStaysClosed(t *testing.T) {
	b := newBreakers()
	for i := 0; i < tripThreshold-1; i++ {
		b.RecordFailure("ch-1")
	}
	if b.State("ch-1") != BreakerClosed {
		t.Errorf("expected breaker to remain closed below the trip threshold, got %s", b.State("ch-1"))
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b := newBreakers()
	for i := 0; i < tripThreshold-1; i++ {
		b.RecordFailure("ch-1")
	}
	b.RecordSuccess("ch-1")
	for i := 0; i < tripThreshold-1; i++ {
		b.RecordFailure("ch-1")
	}
	if b.State("ch-1") != BreakerClosed {
		t.Error("expected a success in between to reset the consecutive-failure counter")
	}
}

func TestBreaker_HalfOpenAdmitsOnceThenFailureReopens(t *testing.T) {
	b := newBreakers()
	cb := b.get("ch-1")
	cb.mu.Lock()
	cb.state = BreakerOpen
	cb.nextAttempt = time.Now().Add(-time.Second)
	cb.mu.Unlock()

	if !b.Admit("ch-1") {
		t.Fatal("expected the first Admit past nextAttempt to transition to half_open and admit")
	}
	if b.State("ch-1") != BreakerHalfOpen {
		t.Errorf("expected BreakerHalfOpen, got %s", b.State("ch-1"))
	}
	if b.Admit("ch-1") {
		t.Error("expected a second concurrent Admit while half_open to be refused")
	}

	b.RecordFailure("ch-1")
	if b.State("ch-1") != BreakerOpen {
		t.Errorf("expected a half_open probe failure to reopen the breaker, got %s", b.State("ch-1"))
	}
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	b := newBreakers()
	cb := b.get("ch-1")
	cb.mu.Lock()
	cb.state = BreakerOpen
	cb.nextAttempt = time.Now().Add(-time.Second)
	cb.mu.Unlock()

	b.Admit("ch-1")
	b.RecordSuccess("ch-1")
	if b.State("ch-1") != BreakerClosed {
		t.Errorf("expected a half_open probe success to close the breaker, got %s", b.State("ch-1"))
	}
}
