package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faceguard/core/internal/alerts"
	"github.com/faceguard/core/internal/domain"
)

// WebhookIngestHandlers backs POST /webhook/recognition/sighting, the
// external sighting ingest path spec.md §6 names: the body must carry a
// valid X-FaceGuard-Signature computed the same way
// internal/delivery.SignHMAC signs an outbound webhook, over the shared
// ingest secret configured for this service.
type WebhookIngestHandlers struct {
	Evaluator *alerts.Evaluator
	Secret    string
}

type ingestSightingWire struct {
	PersonID   string    `json:"person_id"`
	CameraID   string    `json:"camera_id"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source,omitempty"`
}

// verifyHMAC recomputes "sha256=<hex>" over body using secret and compares
// it against header in constant time.
func verifyHMAC(secret string, body []byte, header string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	given, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	return hmac.Equal(given, expected)
}

// IngestSighting handles POST /webhook/recognition/sighting.
func (h *WebhookIngestHandlers) IngestSighting(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "could not read request body")
		return
	}

	if h.Secret != "" {
		sig := r.Header.Get("X-FaceGuard-Signature")
		if !verifyHMAC(h.Secret, body, sig) {
			respondError(w, http.StatusUnauthorized, "validationError", "invalid or missing signature")
			return
		}
	}

	var wire ingestSightingWire
	if err := json.Unmarshal(body, &wire); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid JSON body")
		return
	}
	if wire.PersonID == "" || wire.CameraID == "" {
		respondError(w, http.StatusBadRequest, "validationError", "person_id and camera_id are required")
		return
	}
	ts := wire.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	sighting := domain.Sighting{
		PersonID:   wire.PersonID,
		CameraID:   wire.CameraID,
		Confidence: wire.Confidence,
		Timestamp:  ts,
		Source:     domain.SourceImageUpload,
	}
	result := h.Evaluator.Evaluate(sighting)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": result.Status})
}
