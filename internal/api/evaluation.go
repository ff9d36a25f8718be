package api

import (
	"net/http"
	"time"

	"github.com/faceguard/core/internal/alerts"
	"github.com/faceguard/core/internal/domain"
)

// EvaluationHandlers backs POST /alert-evaluation/evaluate-sighting, the
// direct entry point into the evaluator for callers that already have a
// persisted Sighting (as opposed to the webhook ingest path, which builds
// one from an external payload first).
type EvaluationHandlers struct {
	Evaluator *alerts.Evaluator
}

type sightingWire struct {
	ID           string    `json:"id,omitempty"`
	PersonID     string    `json:"person_id"`
	CameraID     string    `json:"camera_id"`
	Confidence   float64   `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
	QualityScore float64   `json:"quality_score,omitempty"`
}

func sightingFromWire(w sightingWire) domain.Sighting {
	ts := w.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return domain.Sighting{
		ID: w.ID, PersonID: w.PersonID, CameraID: w.CameraID, Confidence: w.Confidence,
		Timestamp: ts, QualityScore: w.QualityScore, Source: domain.SourceImageUpload,
	}
}

// EvaluateSighting handles POST /alert-evaluation/evaluate-sighting, which
// must return "queued" within ~10ms per spec.md §6 — Evaluate already
// backgrounds the real rule work, so the handler does nothing more than
// decode and hand off.
func (h *EvaluationHandlers) EvaluateSighting(w http.ResponseWriter, r *http.Request) {
	var wire sightingWire
	if err := decodeJSON(r, &wire); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	if wire.PersonID == "" {
		respondError(w, http.StatusBadRequest, "validationError", "person_id is required")
		return
	}
	result := h.Evaluator.Evaluate(sightingFromWire(wire))
	respondJSON(w, http.StatusAccepted, map[string]string{"status": result.Status})
}
