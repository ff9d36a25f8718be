package api

import (
	"net/http"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/orchestrator"
	"github.com/faceguard/core/internal/sightings"
)

// HealthHandlers backs GET /api/health/, /live, /ready. Status derives
// from the live camera registry and the sighting queue's own counters
// rather than a separate health-tracking store, since the orchestrator
// and queue already hold everything the aggregate needs.
type HealthHandlers struct {
	Registry  *orchestrator.Registry
	Queue     *sightings.Queue
	StartedAt time.Time
}

type healthCameraWire struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	LastError string `json:"last_error"`
}

type healthResponse struct {
	Status          string             `json:"status"`
	UptimeSeconds    float64            `json:"uptime_seconds"`
	ConnectedCameras int                `json:"connected_cameras"`
	TotalCameras     int                `json:"total_cameras"`
	ErrorRate        float64            `json:"error_rate"`
	QueueStats       sightings.Stats    `json:"sighting_queue"`
	Cameras          []healthCameraWire `json:"cameras"`
}

// Aggregate handles GET /api/health/: status is healthy when the
// connected-camera error rate is <= 10%, degraded above that, unhealthy
// when every enabled camera is erroring, per spec.md §7.
func (h *HealthHandlers) Aggregate(w http.ResponseWriter, r *http.Request) {
	cams := h.Registry.List()
	connected, errored, enabled := 0, 0, 0
	wire := make([]healthCameraWire, 0, len(cams))
	for _, c := range cams {
		if c.Enabled {
			enabled++
		}
		if c.Status == domain.CameraConnected {
			connected++
		}
		if c.Status == domain.CameraError {
			errored++
		}
		wire = append(wire, healthCameraWire{ID: c.ID, Name: c.Name, Status: string(c.Status), LastError: c.LastError})
	}

	errorRate := 0.0
	if enabled > 0 {
		errorRate = float64(errored) / float64(enabled)
	}

	status := "healthy"
	switch {
	case enabled > 0 && errored == enabled:
		status = "unhealthy"
	case errorRate > 0.10:
		status = "degraded"
	}

	var qs sightings.Stats
	if h.Queue != nil {
		qs = h.Queue.Snapshot()
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status:           status,
		UptimeSeconds:    time.Since(h.StartedAt).Seconds(),
		ConnectedCameras: connected,
		TotalCameras:     len(cams),
		ErrorRate:        errorRate,
		QueueStats:       qs,
		Cameras:          wire,
	})
}

// Live handles GET /api/health/live: process-is-running probe.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// Ready handles GET /api/health/ready: ready once the registry exists and
// is reachable — there is no external dependency this process must block
// startup on beyond what main() already waits for before mounting routes.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
