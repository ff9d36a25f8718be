package recognition

import (
	"context"
	"image"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/vectorindex"
)

// Processor is the subset of Client the caching decorator wraps; kept as
// an interface so tests can substitute a fake engine.
type Processor interface {
	Process(ctx context.Context, img image.Image, frame *domain.Frame, confidenceThreshold float64) Result
}

// CachingProcessor sits in front of a Processor and uses only
// Caches.Recognition (the processed-image and embedding caches are not
// consulted): an unchanged frame (by perceptual hash) skips the
// recognition engine call entirely and replays its last result, the way
// original_source/.../cache_manager.py avoids re-running inference on a
// static scene.
type CachingProcessor struct {
	Next   Processor
	Caches *vectorindex.Caches
}

func (c *CachingProcessor) Process(ctx context.Context, img image.Image, frame *domain.Frame, confidenceThreshold float64) Result {
	if c.Caches == nil || c.Next == nil {
		return c.Next.Process(ctx, img, frame, confidenceThreshold)
	}

	key := vectorindex.PerceptualHash(img)
	if entry, ok := c.Caches.Recognition.Get(key); ok {
		return Result{
			Success:          true,
			Persons:          entry.Persons,
			ProcessingTimeMs: entry.ProcessingTimeMs,
			FrameID:          frame.ID,
			Timestamp:        time.Now(),
		}
	}

	result := c.Next.Process(ctx, img, frame, confidenceThreshold)
	if result.Success {
		c.Caches.Recognition.Put(key, vectorindex.RecognitionCacheEntry{
			Persons:          result.Persons,
			ProcessingTimeMs: result.ProcessingTimeMs,
		})
	}
	return result
}
