package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/ruleconfig"
)

// ruleSeedFile mirrors the teacher's config/default.yaml shape: a flat
// YAML document the composition root reads once at boot, here holding the
// starting AlertRule/NotificationChannel set instead of rate-limit/NVR
// poller settings.
type ruleSeedFile struct {
	Rules    []ruleSeed    `yaml:"rules"`
	Channels []channelSeed `yaml:"channels"`
}

type timeRangeSeed struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

type ruleSeed struct {
	Name                 string          `yaml:"name"`
	Priority             string          `yaml:"priority"`
	PersonIDs            []string        `yaml:"person_ids"`
	ExcludedPersons      []string        `yaml:"excluded_persons"`
	CameraIDs            []string        `yaml:"camera_ids"`
	Departments          []string        `yaml:"departments"`
	ConfidenceMin        *float64        `yaml:"confidence_min"`
	ConfidenceMax        *float64        `yaml:"confidence_max"`
	TimeRanges           []timeRangeSeed `yaml:"time_ranges"`
	MinAccessLevel       *int            `yaml:"min_access_level"`
	AnyPerson            bool            `yaml:"any_person"`
	CooldownMinutes      int             `yaml:"cooldown_minutes"`
	EscalationMinutes    *int            `yaml:"escalation_minutes"`
	AutoResolveMinutes   *int            `yaml:"auto_resolve_minutes"`
	NotificationChannels []string        `yaml:"notification_channels"`
	NotificationTemplate string          `yaml:"notification_template"`
	IsActive             bool            `yaml:"is_active"`
}

type channelSeed struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	RetryAttempts   int    `yaml:"retry_attempts"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	IsActive        bool   `yaml:"is_active"`

	Email *struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		TLS  bool   `yaml:"tls"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
		From string `yaml:"from"`
	} `yaml:"email"`
	SMS *struct {
		ProviderURL string `yaml:"provider_url"`
		AccountSID  string `yaml:"account_sid"`
		AuthToken   string `yaml:"auth_token"`
		From        string `yaml:"from"`
	} `yaml:"sms"`
	Webhook *struct {
		URL     string            `yaml:"url"`
		Secret  string            `yaml:"secret"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"webhook"`
}

func setFrom(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

func (r ruleSeed) toDomain() domain.AlertRule {
	trs := make([]domain.TimeRange, 0, len(r.TimeRanges))
	for _, t := range r.TimeRanges {
		trs = append(trs, domain.TimeRange{StartHour: t.StartHour, EndHour: t.EndHour})
	}
	return domain.AlertRule{
		Name:     r.Name,
		Priority: domain.Priority(r.Priority),
		Conditions: domain.TriggerConditions{
			PersonIDs:       setFrom(r.PersonIDs),
			ExcludedPersons: setFrom(r.ExcludedPersons),
			CameraIDs:       setFrom(r.CameraIDs),
			Departments:     setFrom(r.Departments),
			ConfidenceMin:   r.ConfidenceMin,
			ConfidenceMax:   r.ConfidenceMax,
			TimeRanges:      trs,
			MinAccessLevel:  r.MinAccessLevel,
			AnyPerson:       r.AnyPerson,
		},
		CooldownMinutes:      r.CooldownMinutes,
		EscalationMinutes:    r.EscalationMinutes,
		AutoResolveMinutes:   r.AutoResolveMinutes,
		NotificationChannels: r.NotificationChannels,
		NotificationTemplate: r.NotificationTemplate,
		IsActive:             r.IsActive,
	}
}

func (c channelSeed) toDomain() domain.NotificationChannel {
	var cfg domain.ChannelConfig
	switch {
	case c.Email != nil:
		cfg.Email = &domain.EmailConfig{
			Host: c.Email.Host, Port: c.Email.Port, TLS: c.Email.TLS,
			User: c.Email.User, Pass: c.Email.Pass, From: c.Email.From,
		}
	case c.SMS != nil:
		cfg.SMS = &domain.SMSConfig{
			ProviderURL: c.SMS.ProviderURL, AccountSID: c.SMS.AccountSID,
			AuthToken: c.SMS.AuthToken, From: c.SMS.From,
		}
	case c.Webhook != nil:
		cfg.Webhook = &domain.WebhookConfig{
			URL: c.Webhook.URL, Secret: c.Webhook.Secret, Headers: c.Webhook.Headers,
		}
	}
	return domain.NotificationChannel{
		Name: c.Name, Type: domain.ChannelType(c.Type), Config: cfg,
		RateLimitPerMin: c.RateLimitPerMin, RetryAttempts: c.RetryAttempts,
		TimeoutSeconds: c.TimeoutSeconds, IsActive: c.IsActive,
	}
}

// SeedRules loads path (a missing file is not an error — a fresh
// deployment may have no seed data yet) and inserts every rule/channel it
// names into store, the way the teacher's main.go reads config/default.yaml
// once at startup to populate its rate-limit/NVR-poller settings.
func SeedRules(ctx context.Context, store *ruleconfig.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rules config: %w", err)
	}
	var seed ruleSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse rules config: %w", err)
	}
	for _, r := range seed.Rules {
		rule := r.toDomain()
		if err := store.CreateRule(ctx, &rule); err != nil {
			return fmt.Errorf("seed rule %q: %w", r.Name, err)
		}
	}
	for _, c := range seed.Channels {
		ch := c.toDomain()
		if err := store.CreateChannel(ctx, &ch); err != nil {
			return fmt.Errorf("seed channel %q: %w", c.Name, err)
		}
	}
	return nil
}
