package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultHistoryTTL = 7 * 24 * time.Hour

// History batches RecognitionEvents into a per-channel Redis list with a
// TTL, per spec.md §4.8 ("events are batched ... appended to a per-channel
// history list with a TTL, default 7 days").
type History struct {
	rdb       *redis.Client
	batchSize int
	ttl       time.Duration

	buffers map[string][]domain.RecognitionEvent
}

func NewHistory(rdb *redis.Client, batchSize int) *History {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &History{rdb: rdb, batchSize: batchSize, ttl: defaultHistoryTTL, buffers: make(map[string][]domain.RecognitionEvent)}
}

// Append buffers an event and flushes once batchSize is reached. This
// implementation flushes synchronously on the Publish caller's goroutine
// per channel; Redis list appends are cheap enough not to warrant a
// separate flush loop at this event rate.
func (h *History) Append(channel string, event domain.RecognitionEvent) {
	h.buffers[channel] = append(h.buffers[channel], event)
	if len(h.buffers[channel]) < h.batchSize {
		return
	}
	h.flush(channel)
}

func (h *History) flush(channel string) {
	batch := h.buffers[channel]
	h.buffers[channel] = nil
	if len(batch) == 0 || h.rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := "faceguard:history:" + channel
	values := make([]interface{}, 0, len(batch))
	for _, e := range batch {
		b, err := json.Marshal(e)
		if err != nil {
			continue
		}
		values = append(values, b)
	}
	if len(values) == 0 {
		return
	}
	if err := h.rdb.RPush(ctx, key, values...).Err(); err != nil {
		log.Printf("[EventBus] history append failed for channel %s: %v", channel, err)
		return
	}
	h.rdb.Expire(ctx, key, h.ttl)
}

// Recent returns up to limit of the most recent persisted events for a
// channel.
func (h *History) Recent(ctx context.Context, channel string, limit int64) ([]domain.RecognitionEvent, error) {
	if h.rdb == nil {
		return nil, nil
	}
	key := "faceguard:history:" + channel
	raw, err := h.rdb.LRange(ctx, key, -limit, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecognitionEvent, 0, len(raw))
	for _, r := range raw {
		var e domain.RecognitionEvent
		if err := json.Unmarshal([]byte(r), &e); err == nil {
			out = append(out, e)
		}
	}
	return out, nil
}
