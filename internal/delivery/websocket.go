package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/faceguard/core/internal/domain"
)

// RoomBroadcaster is the subset of internal/eventbus.Bus the WebSocket
// channel adapter needs to push a message into a dashboard room.
type RoomBroadcaster interface {
	Broadcast(room string, msg any) (subscribers int)
}

// WebSocketMessage is the JSON shape spec.md §4.7 names for dashboard
// broadcast deliveries.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	AlertID   string    `json:"alert_id"`
	Timestamp time.Time `json:"timestamp"`
	Priority  string    `json:"priority"`
	Data      any       `json:"data"`
}

// WebSocketAdapter delivers by broadcasting to a room; it never fails on
// zero subscribers (spec.md §4.8: "zero subscribers is not an error").
type WebSocketAdapter struct {
	Broadcaster RoomBroadcaster
}

func (a WebSocketAdapter) Send(ctx context.Context, channel domain.NotificationChannel, alert domain.AlertInstance, message string) (string, error) {
	cfg := channel.Config.WebSocket
	room := "dashboard"
	if cfg != nil && cfg.Room != "" {
		room = cfg.Room
	}
	if a.Broadcaster == nil {
		return "", fmt.Errorf("deliveryError: no broadcaster configured")
	}
	a.Broadcaster.Broadcast(room, WebSocketMessage{
		Type:      "alert",
		AlertID:   alert.ID,
		Timestamp: time.Now().UTC(),
		Priority:  string(alert.Priority),
		Data:      message,
	})
	return "", nil
}
