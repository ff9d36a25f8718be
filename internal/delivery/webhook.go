package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/faceguard/core/internal/domain"
)

// WebhookEnvelope is the JSON body spec.md §4.7 names.
type WebhookEnvelope struct {
	EventType string         `json:"event_type"`
	AlertID   string         `json:"alert_id"`
	Timestamp time.Time      `json:"timestamp"`
	AlertData map[string]any `json:"alert_data"`
	Source    string         `json:"source"`
}

// CanonicalJSON marshals v with sorted map keys so the signature computed
// here matches whatever a verifier recomputes independently — encoding/json
// already sorts map[string]any keys, so a struct-to-map round trip via
// map[string]any guarantees canonical key order regardless of field
// declaration order.
func CanonicalJSON(v any) ([]byte, error) {
	asMap := make(map[string]any)
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		// Not an object (e.g. an array or a scalar) — the original marshal is
		// already canonical for encoding/json's sorted-keys behavior.
		return raw, nil
	}
	return json.Marshal(asMap)
}

// SignHMAC computes the X-FaceGuard-Signature header value: "sha256=" plus
// the lowercase hex HMAC-SHA256 of body using secret, per spec.md §8's
// signature-correctness property.
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// WebhookAdapter POSTs the alert envelope and signs it when the channel
// carries a secret.
type WebhookAdapter struct{}

func (WebhookAdapter) Send(ctx context.Context, channel domain.NotificationChannel, alert domain.AlertInstance, message string) (string, error) {
	cfg := channel.Config.Webhook
	if cfg == nil {
		return "", fmt.Errorf("webhook channel %s missing configuration", channel.ID)
	}

	envelope := WebhookEnvelope{
		EventType: "alert",
		AlertID:   alert.ID,
		Timestamp: time.Now().UTC(),
		AlertData: map[string]any{
			"priority": string(alert.Priority),
			"status":   string(alert.Status),
			"message":  message,
			"person_id": alert.PersonID,
			"camera_id": alert.CameraID,
		},
		Source: "faceguard",
	}

	body, err := CanonicalJSON(envelope)
	if err != nil {
		return "", fmt.Errorf("deliveryError: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("deliveryError: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.Secret != "" {
		req.Header.Set("X-FaceGuard-Signature", SignHMAC(cfg.Secret, body))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deliveryError: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("deliveryError: webhook returned %d", resp.StatusCode)
	}
	return "", nil
}
