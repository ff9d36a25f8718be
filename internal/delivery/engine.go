package delivery

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
)

// Adapter sends one message over one channel and returns a provider-side
// external id on success. Implemented by email.go, sms.go, webhook.go,
// websocket.go.
type Adapter interface {
	Send(ctx context.Context, channel domain.NotificationChannel, alert domain.AlertInstance, message string) (externalID string, err error)
}

// ChannelStore resolves a channel id to its configuration, backed by
// internal/ruleconfig.
type ChannelStore interface {
	Channel(ctx context.Context, id string) (domain.NotificationChannel, error)
}

// Engine is C6: it fans a single logical notification out across N
// channels, applying rate limit, circuit breaker, retry, and timeout per
// channel before recording the outcome.
type Engine struct {
	channels  ChannelStore
	records   *RecordStore
	rateLimit *channelRateLimiter
	breakers  *breakers
	adapters  map[domain.ChannelType]Adapter
}

func NewEngine(channels ChannelStore, records *RecordStore, adapters map[domain.ChannelType]Adapter) *Engine {
	return &Engine{
		channels:  channels,
		records:   records,
		rateLimit: newChannelRateLimiter(),
		breakers:  newBreakers(),
		adapters:  adapters,
	}
}

// Dispatch fans the message out to every channelID concurrently; each
// channel is independent — one channel's failure never affects another's
// delivery per spec.md §5 ("channel fan-out inside C6 is cooperative and
// concurrent").
func (e *Engine) Dispatch(ctx context.Context, alert domain.AlertInstance, channelIDs []string, message string) {
	for _, channelID := range channelIDs {
		go e.deliverToChannel(ctx, alert, channelID, message)
	}
}

func (e *Engine) deliverToChannel(ctx context.Context, alert domain.AlertInstance, channelID string, message string) {
	channel, err := e.channels.Channel(ctx, channelID)
	if err != nil {
		log.Printf("[Delivery] unknown channel %s: %v", channelID, err)
		return
	}
	if !channel.IsActive {
		return
	}

	if !e.rateLimit.Allow(channel.ID, channel.RateLimitPerMin) {
		log.Printf("[Delivery] channel %s rate-limited, skipping", channel.ID)
		return
	}

	if !e.breakers.Admit(channel.ID) {
		log.Printf("[Delivery] channel %s circuit open, skipping", channel.ID)
		return
	}

	adapter, ok := e.adapters[channel.Type]
	if !ok {
		log.Printf("[Delivery] no adapter registered for channel type %s", channel.Type)
		return
	}

	retryAttempts := channel.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	timeout := time.Duration(channel.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rec := domain.DeliveryRecord{
		ID:        uuid.NewString(),
		AlertID:   alert.ID,
		ChannelID: channel.ID,
		Status:    domain.DeliveryPending,
		CreatedAt: time.Now(),
	}

	var externalID string
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(math.Min(math.Pow(2, float64(attempt-2)), 60)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
				e.breakers.RecordFailure(channel.ID)
				rec.Status = domain.DeliveryFailed
				rec.ErrorMsg = lastErr.Error()
				e.writeRecord(ctx, rec)
				return
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		externalID, lastErr = adapter.Send(attemptCtx, channel, alert, message)
		cancel()

		e.rateLimit.Record(channel.ID)
		rec.RetryCount = attempt - 1

		if lastErr == nil {
			e.breakers.RecordSuccess(channel.ID)
			rec.Status = domain.DeliverySent
			rec.ExternalID = externalID
			now := time.Now()
			rec.SentAt = &now
			e.writeRecord(ctx, rec)
			return
		}
		e.breakers.RecordFailure(channel.ID)
	}

	rec.Status = domain.DeliveryFailed
	rec.ErrorMsg = fmt.Sprintf("exhausted %d attempts: %v", retryAttempts, lastErr)
	e.writeRecord(ctx, rec)
}

func (e *Engine) writeRecord(ctx context.Context, rec domain.DeliveryRecord) {
	if e.records == nil {
		return
	}
	if err := e.records.Write(ctx, rec); err != nil {
		log.Printf("[Delivery] failed to persist delivery record %s: %v", rec.ID, err)
	}
}

// ChannelBreakerState exposes a channel's circuit-breaker state. Its only
// reader is the internal/metrics collector; no HTTP endpoint returns it.
func (e *Engine) ChannelBreakerState(channelID string) BreakerState {
	return e.breakers.State(channelID)
}

// ChannelActiveRateLimitCount exposes the count of sends within the
// current 60s window for a channel, likewise read only by internal/metrics.
func (e *Engine) ChannelActiveRateLimitCount(channelID string) int {
	return e.rateLimit.ActiveCount(channelID)
}
