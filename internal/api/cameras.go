package api

import (
	"context"
	"net/http"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/orchestrator"
	"github.com/google/uuid"
)

// CameraHandlers backs the camera-control HTTP surface spec.md §6 names,
// delegating ownership and lifecycle to the orchestrator registry and
// supervisor rather than holding any camera state itself.
type CameraHandlers struct {
	Registry   *orchestrator.Registry
	Supervisor *orchestrator.Supervisor
}

type cameraWire struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	SourceURI        string    `json:"source"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	FrameRate        int       `json:"frame_rate,omitempty"`
	Enabled          bool      `json:"enabled"`
	Status           string    `json:"status"`
	StreamState      string    `json:"stream_state"`
	FramesProcessed  int64     `json:"frames_processed"`
	ErrorCount       int64     `json:"error_count"`
	LastError        string    `json:"last_error"`
	LastFrameTime    time.Time `json:"last_frame_time,omitempty"`
	ReconnectAttempt int       `json:"reconnect_attempt"`
}

func wireCamera(c domain.Camera) cameraWire {
	return cameraWire{
		ID: c.ID, Name: c.Name, Location: c.Location, SourceURI: c.SourceURI,
		Width: c.Width, Height: c.Height, FrameRate: c.FrameRate, Enabled: c.Enabled,
		Status: string(c.Status), StreamState: string(c.StreamState),
		FramesProcessed: c.FramesProcessed, ErrorCount: c.ErrorCount, LastError: c.LastError,
		LastFrameTime: c.LastFrameTime, ReconnectAttempt: c.ReconnectAttempt,
	}
}

// ListCameras handles GET /api/cameras/.
func (h *CameraHandlers) ListCameras(w http.ResponseWriter, r *http.Request) {
	cams := h.Registry.List()
	out := make([]cameraWire, 0, len(cams))
	for _, c := range cams {
		out = append(out, wireCamera(c))
	}
	respondJSON(w, http.StatusOK, out)
}

type createCameraRequest struct {
	Source    string `json:"source"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FrameRate int    `json:"frame_rate"`
}

// CreateCamera handles POST /api/cameras/.
func (h *CameraHandlers) CreateCamera(w http.ResponseWriter, r *http.Request) {
	var req createCameraRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	if req.Source == "" {
		respondError(w, http.StatusBadRequest, "validationError", "source is required")
		return
	}
	if req.FrameRate <= 0 {
		req.FrameRate = 5
	}
	cam := domain.Camera{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Location:  req.Location,
		SourceURI: req.Source,
		Width:     req.Width,
		Height:    req.Height,
		FrameRate: req.FrameRate,
		Enabled:   true,
		Reconnect: domain.ReconnectPolicy{MaxAttempts: 5, DelaySecs: 5},
		CreatedAt: time.Now(),
	}
	if err := h.Registry.Add(cam); err != nil {
		respondError(w, http.StatusConflict, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, wireCamera(cam))
}

// GetCamera handles GET /api/cameras/{id}.
func (h *CameraHandlers) GetCamera(w http.ResponseWriter, r *http.Request) {
	cam, err := h.Registry.Get(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wireCamera(cam))
}

type updateCameraRequest struct {
	Name      *string `json:"name"`
	Location  *string `json:"location"`
	FrameRate *int    `json:"frame_rate"`
	Enabled   *bool   `json:"enabled"`
}

// UpdateCamera handles PUT /api/cameras/{id}.
func (h *CameraHandlers) UpdateCamera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.Registry.Get(id); err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	var req updateCameraRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	h.Registry.Mutate(id, func(c *domain.Camera) {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Location != nil {
			c.Location = *req.Location
		}
		if req.FrameRate != nil && *req.FrameRate > 0 {
			c.FrameRate = *req.FrameRate
		}
		if req.Enabled != nil {
			c.Enabled = *req.Enabled
		}
	})
	cam, _ := h.Registry.Get(id)
	respondJSON(w, http.StatusOK, wireCamera(cam))
}

// DeleteCamera handles DELETE /api/cameras/{id}.
func (h *CameraHandlers) DeleteCamera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.Supervisor.StopCamera(id)
	if err := h.Registry.Remove(id); err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ConnectCamera handles POST /api/cameras/{id}/connect.
func (h *CameraHandlers) ConnectCamera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Supervisor.StartCamera(id); err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "connecting"})
}

// DisconnectCamera handles POST /api/cameras/{id}/disconnect.
func (h *CameraHandlers) DisconnectCamera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.Supervisor.StopCamera(id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

type streamControlRequest struct {
	Action    string   `json:"action"`
	CameraIDs []string `json:"camera_ids,omitempty"`
}

// ControlStreams handles POST /api/cameras/streams/control, applying
// action to camera_ids (or every registered camera when omitted).
func (h *CameraHandlers) ControlStreams(w http.ResponseWriter, r *http.Request) {
	var req streamControlRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}

	ids := req.CameraIDs
	if len(ids) == 0 {
		for _, c := range h.Registry.List() {
			ids = append(ids, c.ID)
		}
	}

	results := make(map[string]string, len(ids))
	for _, id := range ids {
		switch req.Action {
		case "start", "resume":
			if err := h.Supervisor.StartCamera(id); err != nil {
				results[id] = "error: " + err.Error()
				continue
			}
			results[id] = "started"
		case "stop":
			h.Supervisor.StopCamera(id)
			results[id] = "stopped"
		case "pause":
			h.Supervisor.StopCamera(id)
			h.Registry.Mutate(id, func(c *domain.Camera) { c.StreamState = domain.StreamPaused })
			results[id] = "paused"
		default:
			respondError(w, http.StatusBadRequest, "validationError", "unknown action "+req.Action)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"action": req.Action, "results": results})
}

// RecognizeCamera handles POST /api/cameras/{id}/recognize: a forced
// one-shot recognition against the camera's current frame.
func (h *CameraHandlers) RecognizeCamera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := h.Supervisor.RecognizeOnce(ctx, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "captureError", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, recognitionResultWire{
		Success:          result.Success,
		FrameID:          result.FrameID,
		Timestamp:        result.Timestamp,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Error:            result.Error,
		Persons:          wirePersons(result.Persons),
	})
}

type recognitionResultWire struct {
	Success          bool          `json:"success"`
	FrameID          string        `json:"frame_id"`
	Timestamp        time.Time     `json:"timestamp"`
	ProcessingTimeMs float64       `json:"processing_time_ms"`
	Error            string        `json:"error,omitempty"`
	Persons          []personWire  `json:"persons"`
}

type personWire struct {
	PersonID              string  `json:"person_id,omitempty"`
	BBox                  [4]float64 `json:"bbox"`
	DetectionConfidence   float64 `json:"detection_confidence"`
	RecognitionConfidence float64 `json:"recognition_confidence"`
}

func wirePersons(persons []domain.FaceDetection) []personWire {
	out := make([]personWire, 0, len(persons))
	for _, p := range persons {
		out = append(out, personWire{
			PersonID:              p.MatchedPersonID,
			BBox:                  [4]float64{p.BBox.X1, p.BBox.Y1, p.BBox.X2, p.BBox.Y2},
			DetectionConfidence:   p.DetectionConfidence,
			RecognitionConfidence: p.RecognitionConfidence,
		})
	}
	return out
}
