package orchestrator

import (
	"sync"
	"time"

	"github.com/faceguard/core/internal/domain"
)

// HealthMonitorConfig mirrors internal/health.SchedulerConfig's shape:
// a scan interval plus the staleness window a camera is allowed to go
// without a new frame before it's considered dead.
type HealthMonitorConfig struct {
	Interval     time.Duration
	StaleAfter   time.Duration
}

// HealthMonitor periodically scans the registry for cameras stuck in
// error or silently stalled, adapted from internal/health.Scheduler's
// ticker-dispatch-backoff loop but driven off in-memory Camera state
// instead of a DB-backed CameraHealthTarget table.
type HealthMonitor struct {
	cfg        HealthMonitorConfig
	registry   *Registry
	supervisor *Supervisor

	backoffMu   sync.Mutex
	nextAttempt map[string]time.Time

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewHealthMonitor(registry *Registry, supervisor *Supervisor, cfg HealthMonitorConfig) *HealthMonitor {
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 30 * time.Second
	}
	return &HealthMonitor{
		cfg:         cfg,
		registry:    registry,
		supervisor:  supervisor,
		nextAttempt: make(map[string]time.Time),
		quit:        make(chan struct{}),
	}
}

func (m *HealthMonitor) Start() {
	m.wg.Add(1)
	go m.run()
}

func (m *HealthMonitor) Stop() {
	close(m.quit)
	m.wg.Wait()
}

func (m *HealthMonitor) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.scan()
	for {
		select {
		case <-ticker.C:
			m.scan()
		case <-m.quit:
			return
		}
	}
}

// scan applies two checks per camera: (1) a connected camera whose last
// frame predates StaleAfter is marked errored and its loop torn down —
// a stream loop can wedge on a capture handle that neither returns a
// frame nor an error; (2) an errored, enabled camera with reconnect
// budget remaining and no live loop is restarted.
func (m *HealthMonitor) scan() {
	now := time.Now()
	for _, cam := range m.registry.List() {
		if cam.Status == domain.CameraConnected && cam.StreamState == domain.StreamActive {
			if !cam.LastFrameTime.IsZero() && now.Sub(cam.LastFrameTime) > m.cfg.StaleAfter {
				m.supervisor.StopCamera(cam.ID)
				m.registry.mutate(cam.ID, func(c *domain.Camera) {
					c.Status = domain.CameraError
					c.LastError = "no frame received within staleness window"
				})
			}
			continue
		}

		if !cam.Enabled || cam.Status != domain.CameraError {
			continue
		}
		if !m.hasReconnectBudget(cam) {
			continue
		}
		if m.registry.hasLoop(cam.ID) {
			continue
		}
		if !m.backoffElapsed(cam, now) {
			continue
		}
		if err := m.supervisor.StartCamera(cam.ID); err == nil {
			m.scheduleNextAttempt(cam, now)
		}
	}
}

func (m *HealthMonitor) hasReconnectBudget(cam domain.Camera) bool {
	return cam.Reconnect.MaxAttempts <= 0 || cam.ReconnectAttempt < cam.Reconnect.MaxAttempts
}

// backoffElapsed applies the same capped-multiplier backoff shape as
// internal/health.Scheduler.shouldSkip (60s/120s/300s tiers), keyed off
// ErrorCount instead of a DB-tracked ConsecutiveFailures column.
func (m *HealthMonitor) backoffElapsed(cam domain.Camera, now time.Time) bool {
	m.backoffMu.Lock()
	next, ok := m.nextAttempt[cam.ID]
	m.backoffMu.Unlock()
	return !ok || now.After(next)
}

func (m *HealthMonitor) scheduleNextAttempt(cam domain.Camera, now time.Time) {
	backoff := 60 * time.Second
	switch {
	case cam.ErrorCount > 5:
		backoff = 300 * time.Second
	case cam.ErrorCount > 1:
		backoff = 120 * time.Second
	}
	m.backoffMu.Lock()
	m.nextAttempt[cam.ID] = now.Add(backoff)
	m.backoffMu.Unlock()
}
