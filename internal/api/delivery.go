package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/faceguard/core/internal/delivery"
	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
)

// DeliveryHandlers backs POST /delivery/send and GET /delivery/logs,
// wrapping a one-off notification in a synthetic AlertInstance so it can
// travel through the same Engine.Dispatch path a rule-triggered alert does.
type DeliveryHandlers struct {
	Engine  *delivery.Engine
	Records *delivery.RecordStore
}

type sendRequest struct {
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	Recipient  string   `json:"recipient"`
	ChannelIDs []string `json:"channel_ids"`
	Priority   string   `json:"priority"`
}

// Send handles POST /delivery/send.
func (h *DeliveryHandlers) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	if req.Message == "" || len(req.ChannelIDs) == 0 {
		respondError(w, http.StatusBadRequest, "validationError", "message and channel_ids are required")
		return
	}
	priority := domain.Priority(req.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}

	alert := domain.AlertInstance{
		ID:          uuid.NewString(),
		Priority:    priority,
		Status:      domain.AlertActive,
		TriggeredAt: time.Now(),
		TriggerData: map[string]any{"subject": req.Subject, "recipient": req.Recipient},
	}
	h.Engine.Dispatch(r.Context(), alert, req.ChannelIDs, req.Message)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched", "alert_id": alert.ID})
}

type deliveryRecordWire struct {
	ID          string         `json:"id"`
	AlertID     string         `json:"alert_id"`
	ChannelID   string         `json:"channel_id"`
	Status      string         `json:"status"`
	RetryCount  int            `json:"retry_count"`
	ErrorMsg    string         `json:"error_msg,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Logs handles GET /delivery/logs?limit=.
func (h *DeliveryHandlers) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	records := h.Records.Recent(limit)
	out := make([]deliveryRecordWire, 0, len(records))
	for _, rec := range records {
		out = append(out, deliveryRecordWire{
			ID: rec.ID, AlertID: rec.AlertID, ChannelID: rec.ChannelID, Status: string(rec.Status),
			RetryCount: rec.RetryCount, ErrorMsg: rec.ErrorMsg, ExternalID: rec.ExternalID,
			CreatedAt: rec.CreatedAt, SentAt: rec.SentAt, DeliveredAt: rec.DeliveredAt, Metadata: rec.Metadata,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
