package ruleconfig

import (
	"context"
	"encoding/json"

	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
)

// channelSecret extracts the one secret field a channel's config carries
// (SMTP password, Twilio auth token, webhook HMAC secret) so it can be
// sealed separately from the rest of the (non-secret) config JSON.
func channelSecret(cfg domain.ChannelConfig) string {
	switch {
	case cfg.Email != nil:
		return cfg.Email.Pass
	case cfg.SMS != nil:
		return cfg.SMS.AuthToken
	case cfg.Webhook != nil:
		return cfg.Webhook.Secret
	default:
		return ""
	}
}

func withSecretCleared(cfg domain.ChannelConfig) domain.ChannelConfig {
	switch {
	case cfg.Email != nil:
		c := *cfg.Email
		c.Pass = ""
		return domain.ChannelConfig{Email: &c}
	case cfg.SMS != nil:
		c := *cfg.SMS
		c.AuthToken = ""
		return domain.ChannelConfig{SMS: &c}
	case cfg.Webhook != nil:
		c := *cfg.Webhook
		c.Secret = ""
		return domain.ChannelConfig{Webhook: &c}
	default:
		return cfg
	}
}

func withSecretRestored(cfg domain.ChannelConfig, secret string) domain.ChannelConfig {
	switch {
	case cfg.Email != nil:
		cfg.Email.Pass = secret
	case cfg.SMS != nil:
		cfg.SMS.AuthToken = secret
	case cfg.Webhook != nil:
		cfg.Webhook.Secret = secret
	}
	return cfg
}

func (s *Store) CreateChannel(ctx context.Context, c *domain.NotificationChannel) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	configJSON, err := json.Marshal(withSecretCleared(c.Config))
	if err != nil {
		return err
	}
	sealed, err := s.sealSecret(c.ID, channelSecret(c.Config))
	if err != nil {
		return err
	}
	query := `
		INSERT INTO notification_channels (
			id, name, type, config, secret_sealed, rate_limit_per_min,
			retry_attempts, timeout_seconds, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.DB.ExecContext(ctx, query,
		c.ID, c.Name, string(c.Type), configJSON, sealed, c.RateLimitPerMin,
		c.RetryAttempts, c.TimeoutSeconds, c.IsActive,
	)
	return err
}

func (s *Store) UpdateChannel(ctx context.Context, c domain.NotificationChannel) error {
	configJSON, err := json.Marshal(withSecretCleared(c.Config))
	if err != nil {
		return err
	}
	sealed, err := s.sealSecret(c.ID, channelSecret(c.Config))
	if err != nil {
		return err
	}
	query := `
		UPDATE notification_channels
		SET name = $1, type = $2, config = $3, secret_sealed = $4, rate_limit_per_min = $5,
		    retry_attempts = $6, timeout_seconds = $7, is_active = $8
		WHERE id = $9`
	res, err := s.DB.ExecContext(ctx, query,
		c.Name, string(c.Type), configJSON, sealed, c.RateLimitPerMin,
		c.RetryAttempts, c.TimeoutSeconds, c.IsActive, c.ID,
	)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteChannel(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM notification_channels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Channel implements internal/delivery.ChannelStore: resolve a channel id
// to its fully populated configuration, secret included, for one delivery
// attempt.
func (s *Store) Channel(ctx context.Context, id string) (domain.NotificationChannel, error) {
	row := s.DB.QueryRowContext(ctx, channelSelect+` WHERE id = $1`, id)
	return s.scanChannel(row)
}

func (s *Store) ListChannels(ctx context.Context) ([]domain.NotificationChannel, error) {
	rows, err := s.DB.QueryContext(ctx, channelSelect+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NotificationChannel
	for rows.Next() {
		c, err := s.scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const channelSelect = `
	SELECT id, name, type, config, secret_sealed, rate_limit_per_min,
	       retry_attempts, timeout_seconds, is_active
	FROM notification_channels`

func (s *Store) scanChannel(row rowScanner) (domain.NotificationChannel, error) {
	var c domain.NotificationChannel
	var typ string
	var configJSON []byte
	var sealed []byte

	err := row.Scan(&c.ID, &c.Name, &typ, &configJSON, &sealed, &c.RateLimitPerMin,
		&c.RetryAttempts, &c.TimeoutSeconds, &c.IsActive)
	if err != nil {
		return domain.NotificationChannel{}, rowNotFound(err)
	}
	c.Type = domain.ChannelType(typ)

	switch c.Type {
	case domain.ChannelEmail:
		c.Config.Email = &domain.EmailConfig{}
	case domain.ChannelSMS:
		c.Config.SMS = &domain.SMSConfig{}
	case domain.ChannelWebhook:
		c.Config.Webhook = &domain.WebhookConfig{}
	case domain.ChannelWebSocket:
		c.Config.WebSocket = &domain.WebSocketConfig{}
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &c.Config); err != nil {
			return domain.NotificationChannel{}, err
		}
	}

	secret, err := s.openSecret(c.ID, sealed)
	if err != nil {
		return domain.NotificationChannel{}, err
	}
	c.Config = withSecretRestored(c.Config, secret)

	return c, nil
}
