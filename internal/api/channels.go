package api

import (
	"context"
	"net/http"
	"time"

	"github.com/faceguard/core/internal/delivery"
	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/ruleconfig"
)

// ChannelHandlers backs /channels and /channels/{id}/test, persisting
// channel configuration (secrets sealed at rest) through ruleconfig.Store
// and test-sending through the same adapter set the delivery engine uses.
type ChannelHandlers struct {
	Channels *ruleconfig.Store
	Adapters map[domain.ChannelType]delivery.Adapter
}

type emailConfigWire struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
	TLS  bool   `json:"tls,omitempty"`
	User string `json:"user,omitempty"`
	Pass string `json:"pass,omitempty"`
	From string `json:"from,omitempty"`
}

type smsConfigWire struct {
	ProviderURL string `json:"provider_url,omitempty"`
	AccountSID  string `json:"account_sid,omitempty"`
	AuthToken   string `json:"auth_token,omitempty"`
	From        string `json:"from,omitempty"`
}

type webhookConfigWire struct {
	URL     string            `json:"url,omitempty"`
	Secret  string            `json:"secret,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type channelConfigWire struct {
	Email   *emailConfigWire   `json:"email,omitempty"`
	SMS     *smsConfigWire     `json:"sms,omitempty"`
	Webhook *webhookConfigWire `json:"webhook,omitempty"`
}

func configFromWire(w channelConfigWire) domain.ChannelConfig {
	var cfg domain.ChannelConfig
	if w.Email != nil {
		cfg.Email = &domain.EmailConfig{Host: w.Email.Host, Port: w.Email.Port, TLS: w.Email.TLS, User: w.Email.User, Pass: w.Email.Pass, From: w.Email.From}
	}
	if w.SMS != nil {
		cfg.SMS = &domain.SMSConfig{ProviderURL: w.SMS.ProviderURL, AccountSID: w.SMS.AccountSID, AuthToken: w.SMS.AuthToken, From: w.SMS.From}
	}
	if w.Webhook != nil {
		cfg.Webhook = &domain.WebhookConfig{URL: w.Webhook.URL, Secret: w.Webhook.Secret, Headers: w.Webhook.Headers}
	}
	return cfg
}

// wireConfig omits secrets (Pass/AuthToken/Secret) from the response —
// channel reads never echo credentials back to the caller.
func wireConfig(cfg domain.ChannelConfig) channelConfigWire {
	var w channelConfigWire
	if cfg.Email != nil {
		w.Email = &emailConfigWire{Host: cfg.Email.Host, Port: cfg.Email.Port, TLS: cfg.Email.TLS, User: cfg.Email.User, From: cfg.Email.From}
	}
	if cfg.SMS != nil {
		w.SMS = &smsConfigWire{ProviderURL: cfg.SMS.ProviderURL, AccountSID: cfg.SMS.AccountSID, From: cfg.SMS.From}
	}
	if cfg.Webhook != nil {
		w.Webhook = &webhookConfigWire{URL: cfg.Webhook.URL, Headers: cfg.Webhook.Headers}
	}
	return w
}

type channelWire struct {
	ID              string            `json:"id,omitempty"`
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Config          channelConfigWire `json:"config"`
	RateLimitPerMin int               `json:"rate_limit_per_min,omitempty"`
	RetryAttempts   int               `json:"retry_attempts,omitempty"`
	TimeoutSeconds  int               `json:"timeout_seconds,omitempty"`
	IsActive        bool              `json:"is_active"`
}

func wireChannel(c domain.NotificationChannel) channelWire {
	return channelWire{
		ID: c.ID, Name: c.Name, Type: string(c.Type), Config: wireConfig(c.Config),
		RateLimitPerMin: c.RateLimitPerMin, RetryAttempts: c.RetryAttempts, TimeoutSeconds: c.TimeoutSeconds, IsActive: c.IsActive,
	}
}

func channelFromWire(w channelWire) domain.NotificationChannel {
	return domain.NotificationChannel{
		ID: w.ID, Name: w.Name, Type: domain.ChannelType(w.Type), Config: configFromWire(w.Config),
		RateLimitPerMin: w.RateLimitPerMin, RetryAttempts: w.RetryAttempts, TimeoutSeconds: w.TimeoutSeconds, IsActive: w.IsActive,
	}
}

// ListChannels handles GET /channels.
func (h *ChannelHandlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.Channels.ListChannels(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "persistenceError", err.Error())
		return
	}
	out := make([]channelWire, 0, len(channels))
	for _, c := range channels {
		out = append(out, wireChannel(c))
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateChannel handles POST /channels.
func (h *ChannelHandlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var wire channelWire
	if err := decodeJSON(r, &wire); err != nil {
		respondError(w, http.StatusBadRequest, "validationError", "invalid request body")
		return
	}
	if wire.Name == "" || wire.Type == "" {
		respondError(w, http.StatusBadRequest, "validationError", "name and type are required")
		return
	}
	channel := channelFromWire(wire)
	if err := h.Channels.CreateChannel(r.Context(), &channel); err != nil {
		respondError(w, http.StatusInternalServerError, "persistenceError", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, wireChannel(channel))
}

type testDeliveryRequest struct {
	Message string `json:"message"`
}

type testDeliveryResponse struct {
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TestChannel handles POST /channels/{id}/test: a direct adapter
// invocation against a synthetic alert, bypassing rate limit, circuit
// breaker, and retry so the caller gets an immediate pass/fail.
func (h *ChannelHandlers) TestChannel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req testDeliveryRequest
	_ = decodeJSON(r, &req)
	if req.Message == "" {
		req.Message = "FaceGuard test notification"
	}

	channel, err := h.Channels.Channel(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "validationError", err.Error())
		return
	}
	adapter, ok := h.Adapters[channel.Type]
	if !ok {
		respondError(w, http.StatusBadRequest, "validationError", "no adapter registered for channel type "+string(channel.Type))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	testAlert := domain.AlertInstance{
		ID:          "test",
		Priority:    domain.PriorityLow,
		Status:      domain.AlertActive,
		TriggeredAt: time.Now(),
	}
	externalID, err := adapter.Send(ctx, channel, testAlert, req.Message)
	if err != nil {
		respondJSON(w, http.StatusOK, testDeliveryResponse{Success: false, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, testDeliveryResponse{Success: true, ExternalID: externalID})
}
