package vectorindex_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/vectorindex"
)

func solidGray(level uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img
}

func TestCaches_RecognitionRoundTrip(t *testing.T) {
	caches := vectorindex.NewCaches()
	entry := vectorindex.RecognitionCacheEntry{
		Persons:          []domain.FaceDetection{{MatchedPersonID: "p-1"}},
		ProcessingTimeMs: 12.5,
	}
	caches.Recognition.Put("hash-1", entry)

	got, ok := caches.Recognition.Get("hash-1")
	if !ok {
		t.Fatal("expected a cache hit for a just-put key")
	}
	if len(got.Persons) != 1 || got.Persons[0].MatchedPersonID != "p-1" {
		t.Errorf("unexpected cached entry: %+v", got)
	}
}

func TestCaches_RecognitionMiss(t *testing.T) {
	caches := vectorindex.NewCaches()
	if _, ok := caches.Recognition.Get("never-put"); ok {
		t.Error("expected a miss for a key that was never put")
	}
}

func TestCaches_AllStatsTracksHitsAndMisses(t *testing.T) {
	caches := vectorindex.NewCaches()
	caches.Recognition.Get("miss-1")
	caches.Recognition.Put("key-1", vectorindex.RecognitionCacheEntry{})
	caches.Recognition.Get("key-1")

	stats := caches.AllStats()
	snap := stats["recognition"]
	if snap.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", snap.Hits)
	}
	if snap.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", snap.Misses)
	}
}

func TestPerceptualHash_StableForIdenticalImage(t *testing.T) {
	img := solidGray(100)
	h1 := vectorindex.PerceptualHash(img)
	h2 := vectorindex.PerceptualHash(img)
	if h1 != h2 {
		t.Errorf("expected the same image to hash identically, got %s vs %s", h1, h2)
	}
}

func TestQuantizeEmbeddingKey_StableForIdenticalVector(t *testing.T) {
	v := []float32{0.12345, -0.6789, 0.0001}
	k1 := vectorindex.QuantizeEmbeddingKey(v)
	k2 := vectorindex.QuantizeEmbeddingKey(append([]float32{}, v...))
	if k1 != k2 {
		t.Errorf("expected identical vectors to quantize to the same key, got %s vs %s", k1, k2)
	}
}

func TestQuantizeEmbeddingKey_DiffersForDifferentVectors(t *testing.T) {
	k1 := vectorindex.QuantizeEmbeddingKey([]float32{0.1, 0.2})
	k2 := vectorindex.QuantizeEmbeddingKey([]float32{0.9, 0.8})
	if k1 == k2 {
		t.Error("expected different vectors to quantize to different keys")
	}
}
