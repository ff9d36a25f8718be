// Package sightings is the non-blocking async capture queue (C4): it
// converts recognized faces into Sighting values, enqueues them without
// ever blocking the stream loop, and fans uploads out to the external
// data service on a single background consumer.
package sightings

import (
	"context"
	"image"
	"image/jpeg"
	"log"
	"sync/atomic"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
)

const (
	queueCapacity  = 1000
	minCropSize    = 50
	cropJPEGQuality = 90
)

// Uploader persists a Sighting to the external data service and, on
// success, forwards it into alert evaluation. It is called from a detached
// goroutine per Sighting so a slow or failing upload never backs up the
// queue consumer. See internal/dataservice and internal/alerts.
type Uploader interface {
	UploadSighting(ctx context.Context, s domain.Sighting) (assignedID string, err error)
	Evaluate(ctx context.Context, s domain.Sighting)
}

// Stats are the counters spec.md §8's testable properties name directly:
// total captured, successful uploads, and queue_full_drops.
type Stats struct {
	TotalCaptured    int64
	SuccessfulUploads int64
	QueueFullDrops   int64
}

// Queue is the bounded channel scheduler.go's dispatch-or-skip pattern
// adapts directly: capacity 1000, drop-new (never drop-oldest) on full,
// one background consumer fanning out detached per-Sighting uploads.
type Queue struct {
	ch       chan domain.Sighting
	uploader Uploader
	stats    Stats

	cancel context.CancelFunc
	done   chan struct{}
}

func NewQueue(uploader Uploader) *Queue {
	return &Queue{
		ch:       make(chan domain.Sighting, queueCapacity),
		uploader: uploader,
		done:     make(chan struct{}),
	}
}

// Start launches the single background consumer. Call Stop to drain and
// terminate it at shutdown.
func (q *Queue) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	go q.consume(ctx)
}

func (q *Queue) Stop(drainTimeout time.Duration) {
	if q.cancel != nil {
		q.cancel()
	}
	select {
	case <-q.done:
	case <-time.After(drainTimeout):
		log.Printf("[SightingQueue] drain grace period exceeded, forcing shutdown")
	}
}

func (q *Queue) Snapshot() Stats {
	return Stats{
		TotalCaptured:     atomic.LoadInt64(&q.stats.TotalCaptured),
		SuccessfulUploads: atomic.LoadInt64(&q.stats.SuccessfulUploads),
		QueueFullDrops:    atomic.LoadInt64(&q.stats.QueueFullDrops),
	}
}

// CaptureAsync builds one Sighting per detected person above threshold,
// crops the face bounds-clamped to at least minCropSize, and enqueues
// without blocking. Returns immediately — per spec.md §8's non-blocking
// property, callers should see sub-millisecond latency even when the
// queue is full.
func (q *Queue) CaptureAsync(img image.Image, result RecognitionOutcome, cameraID string, frame *domain.Frame) {
	for _, person := range result.Persons {
		if person.MatchedPersonID == "" {
			continue
		}
		crop := cropBounds(img.Bounds(), person.BBox)
		var cropJPEG []byte
		if cropped := cropImage(img, crop); cropped != nil {
			cropJPEG = encodeJPEG(cropped)
		}

		s := domain.Sighting{
			ID:           uuid.NewString(),
			PersonID:     person.MatchedPersonID,
			CameraID:     cameraID,
			Confidence:   person.RecognitionConfidence,
			Timestamp:    time.Now().UTC(),
			BBox:         person.BBox,
			CropJPEG:     cropJPEG,
			QualityScore: qualityScoreOf(frame),
			Source:       domain.SourceCameraStream,
			FrameID:      frame.ID,
			FrameNumber:  frame.Number,
		}

		atomic.AddInt64(&q.stats.TotalCaptured, 1)
		select {
		case q.ch <- s:
		default:
			atomic.AddInt64(&q.stats.QueueFullDrops, 1)
		}
	}
}

// RecognitionOutcome is the subset of recognition.Result the queue needs;
// kept local to avoid an import cycle between sightings and recognition.
type RecognitionOutcome struct {
	Persons []domain.FaceDetection
}

func qualityScoreOf(frame *domain.Frame) float64 {
	if frame.Quality == nil {
		return 0
	}
	return frame.Quality.Score
}

func (q *Queue) consume(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case s := <-q.ch:
			go q.upload(ctx, s)
		case <-ctx.Done():
			// ctx is already cancelled, so sightings still queued are
			// uploaded on a fresh context until the channel is empty.
			for {
				select {
				case s := <-q.ch:
					q.upload(context.Background(), s)
				default:
					return
				}
			}
		}
	}
}

// upload performs the independent upload → evaluate chain described by
// spec.md §4.5: a failure at either step is logged and counted, never
// cancels the other or the queue consumer.
func (q *Queue) upload(ctx context.Context, s domain.Sighting) {
	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	assignedID, err := q.uploader.UploadSighting(uploadCtx, s)
	if err != nil {
		log.Printf("[SightingQueue] persistenceError: upload failed for person=%s camera=%s: %v", s.PersonID, s.CameraID, err)
		return
	}
	atomic.AddInt64(&q.stats.SuccessfulUploads, 1)
	if assignedID != "" {
		s.ID = assignedID
	}
	q.uploader.Evaluate(ctx, s)
}

func cropBounds(frameBounds image.Rectangle, bbox domain.BoundingBox) image.Rectangle {
	x1, y1, x2, y2 := int(bbox.X1), int(bbox.Y1), int(bbox.X2), int(bbox.Y2)
	if x1 < frameBounds.Min.X {
		x1 = frameBounds.Min.X
	}
	if y1 < frameBounds.Min.Y {
		y1 = frameBounds.Min.Y
	}
	if x2 > frameBounds.Max.X {
		x2 = frameBounds.Max.X
	}
	if y2 > frameBounds.Max.Y {
		y2 = frameBounds.Max.Y
	}
	if x2-x1 < minCropSize {
		x2 = x1 + minCropSize
	}
	if y2-y1 < minCropSize {
		y2 = y1 + minCropSize
	}
	return image.Rect(x1, y1, x2, y2)
}

func cropImage(img image.Image, r image.Rectangle) image.Image {
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	si, ok := img.(subImager)
	if !ok {
		return nil
	}
	return si.SubImage(r)
}

func encodeJPEG(img image.Image) []byte {
	var buf []byte
	pw := &byteWriter{&buf}
	if err := jpeg.Encode(pw, img, &jpeg.Options{Quality: cropJPEGQuality}); err != nil {
		return nil
	}
	return buf
}

type byteWriter struct{ buf *[]byte }

func (w *byteWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
