package recognition_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/recognition"
	"github.com/faceguard/core/internal/vectorindex"
)

type stubProcessor struct {
	calls  int
	result recognition.Result
}

func (s *stubProcessor) Process(ctx context.Context, img image.Image, frame *domain.Frame, confidenceThreshold float64) recognition.Result {
	s.calls++
	return s.result
}

func solidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// splitImage is half light, half dark so its perceptual hash differs from
// another split in the opposite direction — a uniform solid color always
// hashes to the same value regardless of brightness, since every pixel sits
// exactly at the image's own mean.
func splitImage(darkLeft bool) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			leftHalf := x < 4
			c := color.White
			if leftHalf == darkLeft {
				c = color.Black
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCachingProcessor_MissThenHit(t *testing.T) {
	stub := &stubProcessor{result: recognition.Result{
		Success:          true,
		Persons:          []domain.FaceDetection{{MatchedPersonID: "p-1", RecognitionConfidence: 0.9}},
		ProcessingTimeMs: 42,
	}}
	caches := vectorindex.NewCaches()
	cp := &recognition.CachingProcessor{Next: stub, Caches: caches}

	img := solidImage(color.White)
	frame1 := &domain.Frame{ID: "frame-1"}
	r1 := cp.Process(context.Background(), img, frame1, 0.5)
	if !r1.Success || len(r1.Persons) != 1 || r1.Persons[0].MatchedPersonID != "p-1" {
		t.Fatalf("unexpected first result: %+v", r1)
	}
	if stub.calls != 1 {
		t.Fatalf("expected engine called once, got %d", stub.calls)
	}

	frame2 := &domain.Frame{ID: "frame-2"}
	r2 := cp.Process(context.Background(), img, frame2, 0.5)
	if stub.calls != 1 {
		t.Fatalf("expected cache hit to skip engine call, engine called %d times", stub.calls)
	}
	if r2.FrameID != "frame-2" {
		t.Errorf("expected cached result to be stamped with the new frame id, got %q", r2.FrameID)
	}
	if len(r2.Persons) != 1 || r2.Persons[0].MatchedPersonID != "p-1" {
		t.Errorf("expected cached persons to match original result, got %+v", r2.Persons)
	}
}

func TestCachingProcessor_DifferentFramesMiss(t *testing.T) {
	stub := &stubProcessor{result: recognition.Result{Success: true, Persons: []domain.FaceDetection{{MatchedPersonID: "p-2"}}}}
	caches := vectorindex.NewCaches()
	cp := &recognition.CachingProcessor{Next: stub, Caches: caches}

	cp.Process(context.Background(), splitImage(true), &domain.Frame{ID: "f1"}, 0.5)
	cp.Process(context.Background(), splitImage(false), &domain.Frame{ID: "f2"}, 0.5)

	if stub.calls != 2 {
		t.Errorf("expected two distinct frames to both miss the cache, engine called %d times", stub.calls)
	}
}

func TestCachingProcessor_FailedResultNotCached(t *testing.T) {
	stub := &stubProcessor{result: recognition.Result{Success: false, Error: "engine unavailable"}}
	caches := vectorindex.NewCaches()
	cp := &recognition.CachingProcessor{Next: stub, Caches: caches}

	img := solidImage(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	cp.Process(context.Background(), img, &domain.Frame{ID: "f1"}, 0.5)
	cp.Process(context.Background(), img, &domain.Frame{ID: "f2"}, 0.5)

	if stub.calls != 2 {
		t.Errorf("expected a failed result to not be cached, engine called %d times, want 2", stub.calls)
	}
}

func TestCachingProcessor_NilCachesBypasses(t *testing.T) {
	stub := &stubProcessor{result: recognition.Result{Success: true}}
	cp := &recognition.CachingProcessor{Next: stub, Caches: nil}

	img := solidImage(color.White)
	cp.Process(context.Background(), img, &domain.Frame{ID: "f1"}, 0.5)
	cp.Process(context.Background(), img, &domain.Frame{ID: "f1"}, 0.5)

	if stub.calls != 2 {
		t.Errorf("expected nil Caches to bypass caching entirely, engine called %d times, want 2", stub.calls)
	}
}
