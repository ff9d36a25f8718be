// Package metrics exposes FaceGuard's Prometheus surface: a ticker-driven
// Collector pulls gauges from the orchestrator registry, sighting queue,
// delivery engine and alert evaluator on each tick, adapted from the
// teacher's Collector (same ticker/collect/Handler shape, originally
// polling an external media-plane/SFU gRPC+HTTP stack instead of
// in-process components).
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"

	"github.com/faceguard/core/internal/alerts"
	"github.com/faceguard/core/internal/delivery"
	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/orchestrator"
	"github.com/faceguard/core/internal/sightings"
)

// Config holds the in-process components the collector reads from.
type Config struct {
	Registry  *orchestrator.Registry
	Queue     *sightings.Queue
	Engine    *delivery.Engine
	Cooldowns *alerts.Cooldowns
	// ChannelIDs lists the notification channel ids to report circuit
	// breaker/rate-limit gauges for; populated by the composition root
	// once channels are loaded from internal/ruleconfig.
	ChannelIDs []string
}

// Collector manages metric aggregation and exposure: camera counts by
// enabled flag and status, sighting queue captured/uploaded/full-drop
// counts and depth, cooldown skips, and per-channel breaker state and
// rate-limit window counts.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	camerasTotal     *prometheus.GaugeVec
	camerasConnected prometheus.Gauge
	camerasErrored   prometheus.Gauge

	framesProcessed prometheus.Gauge
	sightingsQueued prometheus.Gauge
	queueDrops      prometheus.Gauge
	uploadsOK       prometheus.Gauge

	cooldownSkipped prometheus.Gauge

	breakerState   *prometheus.GaugeVec
	rateLimitCount *prometheus.GaugeVec
}

func NewCollector(cfg Config) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{config: cfg, registry: reg}

	c.camerasTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "faceguard_cameras_total",
		Help: "Total registered cameras by enabled state",
	}, []string{"enabled"})
	reg.MustRegister(c.camerasTotal)

	c.camerasConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_cameras_connected",
		Help: "Cameras currently in the connected status",
	})
	reg.MustRegister(c.camerasConnected)

	c.camerasErrored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_cameras_errored",
		Help: "Cameras currently in the error status",
	})
	reg.MustRegister(c.camerasErrored)

	c.framesProcessed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_sighting_queue_captured_total",
		Help: "Total sightings captured into the async queue",
	})
	reg.MustRegister(c.framesProcessed)

	c.sightingsQueued = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_sighting_queue_uploads_total",
		Help: "Total sightings successfully uploaded",
	})
	reg.MustRegister(c.sightingsQueued)

	c.queueDrops = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_sighting_queue_full_drops_total",
		Help: "Total sightings dropped because the async queue was full",
	})
	reg.MustRegister(c.queueDrops)

	c.uploadsOK = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_sighting_queue_depth",
		Help: "Approximate in-flight depth (captured minus uploaded)",
	})
	reg.MustRegister(c.uploadsOK)

	c.cooldownSkipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "faceguard_alert_cooldown_skipped_total",
		Help: "Total rule matches skipped due to an active cooldown",
	})
	reg.MustRegister(c.cooldownSkipped)

	c.breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "faceguard_delivery_breaker_state",
		Help: "Per-channel circuit breaker state (0=closed, 1=half_open, 2=open)",
	}, []string{"channel_id"})
	reg.MustRegister(c.breakerState)

	c.rateLimitCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "faceguard_delivery_rate_limit_active",
		Help: "Per-channel count of sends within the current rate-limit window",
	}, []string{"channel_id"})
	reg.MustRegister(c.rateLimitCount)

	return c
}

func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) collect() {
	if c.config.Registry != nil {
		cams := c.config.Registry.List()
		enabled, connected, errored := 0, 0, 0
		for _, cam := range cams {
			if cam.Enabled {
				enabled++
			}
			if cam.Status == domain.CameraConnected {
				connected++
			}
			if cam.Status == domain.CameraError {
				errored++
			}
		}
		c.camerasTotal.WithLabelValues("true").Set(float64(enabled))
		c.camerasTotal.WithLabelValues("false").Set(float64(len(cams) - enabled))
		c.camerasConnected.Set(float64(connected))
		c.camerasErrored.Set(float64(errored))
	}

	if c.config.Queue != nil {
		stats := c.config.Queue.Snapshot()
		c.framesProcessed.Set(float64(stats.TotalCaptured))
		c.sightingsQueued.Set(float64(stats.SuccessfulUploads))
		c.queueDrops.Set(float64(stats.QueueFullDrops))
		c.uploadsOK.Set(float64(stats.TotalCaptured - stats.SuccessfulUploads))
	}

	if c.config.Cooldowns != nil {
		c.cooldownSkipped.Set(float64(c.config.Cooldowns.Skipped()))
	}

	if c.config.Engine != nil {
		for _, id := range c.config.ChannelIDs {
			c.breakerState.WithLabelValues(id).Set(breakerStateValue(c.config.Engine.ChannelBreakerState(id)))
			c.rateLimitCount.WithLabelValues(id).Set(float64(c.config.Engine.ChannelActiveRateLimitCount(id)))
		}
	}
}

func breakerStateValue(s delivery.BreakerState) float64 {
	switch s {
	case delivery.BreakerOpen:
		return 2
	case delivery.BreakerHalfOpen:
		return 1
	default:
		return 0
	}
}
