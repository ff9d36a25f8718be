package vectorindex

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/faceguard/core/internal/domain"
)

// Stats tracks hit/miss/response-time counters per cache, the
// supplemented detail cache_manager.py's CacheStats exposes beyond the
// plain hit/miss spec.md names — readable through Caches.AllStats; the
// health endpoint does not include them.
type Stats struct {
	mu            sync.Mutex
	Hits          int64
	Misses        int64
	totalLookupNs int64
}

func (s *Stats) record(hit bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.Hits++
	} else {
		s.Misses++
	}
	s.totalLookupNs += elapsed.Nanoseconds()
}

// Snapshot is a point-in-time read of Stats safe to serialize to JSON.
type Snapshot struct {
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	HitRatio         float64 `json:"hit_ratio"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.Hits + s.Misses
	snap := Snapshot{Hits: s.Hits, Misses: s.Misses}
	if total > 0 {
		snap.HitRatio = float64(s.Hits) / float64(total)
		snap.AvgResponseTimeMs = float64(s.totalLookupNs) / float64(total) / 1e6
	}
	return snap
}

type entry[V any] struct {
	value   V
	addedAt time.Time
}

// ttlCache wraps a hashicorp/golang-lru Cache with a TTL check on Get, the
// same shape as internal/nvr.EventDedup extended to hold an arbitrary
// value (EventDedup only ever stored a timestamp) and to track Stats.
type ttlCache[V any] struct {
	cache *lru.Cache[string, entry[V]]
	ttl   time.Duration
	stats Stats
}

func newTTLCache[V any](capacity int, ttl time.Duration) *ttlCache[V] {
	c, _ := lru.New[string, entry[V]](capacity)
	return &ttlCache[V]{cache: c, ttl: ttl}
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	start := time.Now()
	e, ok := c.cache.Get(key)
	if ok && time.Since(e.addedAt) < c.ttl {
		c.stats.record(true, time.Since(start))
		return e.value, true
	}
	if ok {
		c.cache.Remove(key)
	}
	c.stats.record(false, time.Since(start))
	var zero V
	return zero, false
}

func (c *ttlCache[V]) Put(key string, value V) {
	c.cache.Add(key, entry[V]{value: value, addedAt: time.Now()})
}

func (c *ttlCache[V]) Stats() Snapshot { return c.stats.Snapshot() }

// Caches bundles the three caches spec.md §4.4 names in front of the
// vector index, each with its own capacity and TTL.
type Caches struct {
	ProcessedImage *ttlCache[bool]                  // keyed by perceptual hash of the resized frame
	Embedding      *ttlCache[[]float32]              // keyed by quantized embedding bytes
	Recognition    *ttlCache[RecognitionCacheEntry] // keyed by frame perceptual hash
}

// RecognitionCacheEntry holds a full recognition outcome for a frame: a
// frame can carry zero, one, or several detected faces, so the cache
// stores the whole Persons list rather than a single best match.
type RecognitionCacheEntry struct {
	Persons          []domain.FaceDetection
	ProcessingTimeMs float64
}

func NewCaches() *Caches {
	return &Caches{
		ProcessedImage: newTTLCache[bool](100, 30*time.Minute),
		Embedding:      newTTLCache[[]float32](1000, 2*time.Hour),
		Recognition:    newTTLCache[RecognitionCacheEntry](500, time.Hour),
	}
}

// AllStats returns a snapshot of every cache, keyed by name.
func (c *Caches) AllStats() map[string]Snapshot {
	return map[string]Snapshot{
		"processed_image": c.ProcessedImage.Stats(),
		"embedding":        c.Embedding.Stats(),
		"recognition":      c.Recognition.Stats(),
	}
}
