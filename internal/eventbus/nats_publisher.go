package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/nats-io/nats.go"
)

// NATSPublisher is adapted near-verbatim from internal/nvr.NATSPublisher —
// same retry-with-linear-backoff publish loop, subject renamed and
// payload type swapped to RecognitionEvent.
type NATSPublisher struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
}

func NewNATSPublisher(conn *nats.Conn, subject string, maxRetries int) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, maxRetries: maxRetries}
}

func (p *NATSPublisher) Publish(event domain.RecognitionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	var lastErr error
	for i := 0; i <= p.maxRetries; i++ {
		lastErr = p.conn.Publish(p.subject, data)
		if lastErr == nil {
			return nil
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, lastErr)
}
