package alerts_test

import (
	"sync"
	"testing"
	"time"

	"github.com/faceguard/core/internal/alerts"
)

func TestCooldowns_FirstCheckPasses(t *testing.T) {
	c := alerts.NewCooldowns()
	if !c.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute) {
		t.Error("expected the first check for a fresh key to pass")
	}
	if c.Skipped() != 0 {
		t.Errorf("expected no skips yet, got %d", c.Skipped())
	}
}

func TestCooldowns_SecondCheckWithinWindowSkips(t *testing.T) {
	c := alerts.NewCooldowns()
	c.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute)
	if c.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute) {
		t.Error("expected the second check within the cooldown window to be skipped")
	}
	if c.Skipped() != 1 {
		t.Errorf("expected exactly one skip, got %d", c.Skipped())
	}
}

func TestCooldowns_ExpiresAfterWindow(t *testing.T) {
	c := alerts.NewCooldowns()
	c.CheckAndSet("rule-1", "person-1", "cam-1", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if !c.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute) {
		t.Error("expected a check after the cooldown window elapsed to pass again")
	}
}

func TestCooldowns_DistinctKeysAreIndependent(t *testing.T) {
	c := alerts.NewCooldowns()
	c.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute)
	if !c.CheckAndSet("rule-1", "person-2", "cam-1", time.Minute) {
		t.Error("expected a different person id to be an independent key")
	}
	if !c.CheckAndSet("rule-2", "person-1", "cam-1", time.Minute) {
		t.Error("expected a different rule id to be an independent key")
	}
	if !c.CheckAndSet("rule-1", "person-1", "cam-2", time.Minute) {
		t.Error("expected a different camera id to be an independent key")
	}
}

func TestCooldowns_ConcurrentCheckAndSetOnlyOneWins(t *testing.T) {
	c := alerts.NewCooldowns()
	const n = 50
	var wg sync.WaitGroup
	var passes int32
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.CheckAndSet("rule-1", "person-1", "cam-1", time.Minute) {
				mu.Lock()
				passes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if passes != 1 {
		t.Errorf("expected exactly one concurrent CheckAndSet to pass, got %d", passes)
	}
}
