// Package dataservice is the HTTP client to the external core-data-service
// — the authoritative store for Sighting, AlertInstance, HighPriorityPerson
// and contact-link records that spec.md §1 treats as an external
// collaborator, not something this repository implements.
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/faceguard/core/internal/domain"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// UploadSighting multipart-POSTs the crop (if present) plus sighting
// metadata to the data service's sighting endpoint and returns the
// service-assigned id on HTTP 201, per spec.md §4.5.
func (c *Client) UploadSighting(ctx context.Context, s domain.Sighting, crop image.Image) (string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	meta, _ := json.Marshal(sightingWire{
		PersonID:     s.PersonID,
		CameraID:     s.CameraID,
		Confidence:   s.Confidence,
		Timestamp:    s.Timestamp,
		QualityScore: s.QualityScore,
		Source:       string(s.Source),
	})
	_ = w.WriteField("sighting", string(meta))

	if crop != nil {
		part, err := w.CreateFormFile("crop", s.ID+".jpg")
		if err == nil {
			_ = jpeg.Encode(part, crop, &jpeg.Options{Quality: 90})
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sightings", body)
	if err != nil {
		return "", fmt.Errorf("persistenceError: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("persistenceError: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("persistenceError: data service returned %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("persistenceError: decode response: %w", err)
	}
	return out.ID, nil
}

type sightingWire struct {
	PersonID     string    `json:"person_id"`
	CameraID     string    `json:"camera_id"`
	Confidence   float64   `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
	QualityScore float64   `json:"quality_score"`
	Source       string    `json:"source"`
}

// HighPriorityStatus is the response shape from
// GET /high-priority-persons/check/{id}, per spec.md §4.6 Rule 2.
type HighPriorityStatus struct {
	IsHighPriority        bool
	PriorityLevel         domain.HighPriorityLevel
	AlertReason           string
	EscalationChannels    []string
	NotificationFrequency domain.NotificationFrequency
}

// CheckHighPriority queries the priority status for a person. Per spec.md
// §4.6's graceful fallback, callers treat any returned error as "not
// high-priority" and log the degradation rather than fail the whole
// evaluation.
func (c *Client) CheckHighPriority(ctx context.Context, personID string) (HighPriorityStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/high-priority-persons/check/"+personID, nil)
	if err != nil {
		return HighPriorityStatus{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HighPriorityStatus{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return HighPriorityStatus{}, fmt.Errorf("priority API returned %d", resp.StatusCode)
	}
	var wire struct {
		IsHighPriority        bool     `json:"is_high_priority"`
		PriorityLevel         string   `json:"priority_level"`
		AlertReason           string   `json:"alert_reason"`
		EscalationChannels    []string `json:"escalation_channels"`
		NotificationFrequency string   `json:"notification_frequency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return HighPriorityStatus{}, err
	}
	return HighPriorityStatus{
		IsHighPriority:        wire.IsHighPriority,
		PriorityLevel:         domain.HighPriorityLevel(wire.PriorityLevel),
		AlertReason:           wire.AlertReason,
		EscalationChannels:    wire.EscalationChannels,
		NotificationFrequency: domain.NotificationFrequency(wire.NotificationFrequency),
	}, nil
}

// ContactLinks fetches the high_priority_person_contacts linking table for
// a person (DESIGN.md Open Question 3).
func (c *Client) ContactLinks(ctx context.Context, personID string) ([]domain.HighPriorityContactLink, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/high-priority-persons/"+personID+"/contacts", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contact link API returned %d", resp.StatusCode)
	}
	var wire []struct {
		ContactID              string  `json:"contact_id"`
		EscalationDelayMinutes int     `json:"escalation_delay_minutes"`
		PriorityOverride       string  `json:"priority_override"`
		CustomMessageTemplate  string  `json:"custom_message_template"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, err
	}
	out := make([]domain.HighPriorityContactLink, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.HighPriorityContactLink{
			PersonID:               personID,
			ContactID:              w.ContactID,
			EscalationDelayMinutes: w.EscalationDelayMinutes,
			PriorityOverride:       domain.Priority(w.PriorityOverride),
			CustomMessageTemplate:  w.CustomMessageTemplate,
		})
	}
	return out, nil
}

// Contact fetches a single NotificationContact by id.
func (c *Client) Contact(ctx context.Context, contactID string) (domain.NotificationContact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/contacts/"+contactID, nil)
	if err != nil {
		return domain.NotificationContact{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NotificationContact{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.NotificationContact{}, fmt.Errorf("contact API returned %d", resp.StatusCode)
	}
	var wire struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Value    string `json:"value"`
		Active   bool   `json:"active"`
		PersonID string `json:"person_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return domain.NotificationContact{}, err
	}
	return domain.NotificationContact{
		ID: wire.ID, Type: domain.ContactType(wire.Type), Value: wire.Value, Active: wire.Active, PersonID: wire.PersonID,
	}, nil
}
