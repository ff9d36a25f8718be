package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/faceguard/core/internal/domain"
)

// NormalizePhone implements spec.md §4.7's normalization heuristic.
//
// The "877" branch is a known-weak heuristic carried over as specified
// (DESIGN.md Open Question 2, spec.md §9 flags it for operator review):
// 877 is actually a US toll-free prefix, not a country code, but the spec
// pins this exact behavior so it is implemented as given rather than
// silently corrected.
func NormalizePhone(raw string) string {
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	digits := stripSeparators(raw)
	if strings.HasPrefix(digits, "877") {
		return "+91" + digits
	}
	if len(digits) == 10 && digits[0] >= '2' && digits[0] <= '9' {
		return "+1" + digits
	}
	return "+1" + digits
}

func stripSeparators(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SMSAdapter delivers through a Twilio-compatible form-encoded POST with
// HTTP Basic auth, matching the provider contract spec.md §4.7 names.
type SMSAdapter struct {
	To func(alert domain.AlertInstance) string
}

func (a SMSAdapter) Send(ctx context.Context, channel domain.NotificationChannel, alert domain.AlertInstance, message string) (string, error) {
	cfg := channel.Config.SMS
	if cfg == nil {
		return "", fmt.Errorf("sms channel %s missing configuration", channel.ID)
	}
	to := ""
	if a.To != nil {
		to = a.To(alert)
	}
	if to == "" {
		return "", fmt.Errorf("no recipient resolved for alert %s", alert.ID)
	}
	to = NormalizePhone(to)

	text := message
	if len(text) > 160 {
		text = text[:160]
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", cfg.From)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ProviderURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deliveryError: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deliveryError: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("deliveryError: sms provider %d: %s (code %d)", resp.StatusCode, body.Message, body.Code)
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil
	}
	return out.SID, nil
}
