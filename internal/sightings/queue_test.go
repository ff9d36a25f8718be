package sightings_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/sightings"
)

type recordingUploader struct {
	mu         sync.Mutex
	uploaded   []domain.Sighting
	evaluated  []domain.Sighting
	uploadErr  error
	assignedID string
}

func (u *recordingUploader) UploadSighting(ctx context.Context, s domain.Sighting) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.uploadErr != nil {
		return "", u.uploadErr
	}
	u.uploaded = append(u.uploaded, s)
	return u.assignedID, nil
}

func (u *recordingUploader) Evaluate(ctx context.Context, s domain.Sighting) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.evaluated = append(u.evaluated, s)
}

func (u *recordingUploader) snapshot() (uploaded, evaluated int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploaded), len(u.evaluated)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueue_CaptureAsyncUploadsAndEvaluates(t *testing.T) {
	uploader := &recordingUploader{}
	q := sightings.NewQueue(uploader)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop(time.Second)

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	outcome := sightings.RecognitionOutcome{Persons: []domain.FaceDetection{
		{MatchedPersonID: "p-1", RecognitionConfidence: 0.95, BBox: domain.BoundingBox{X1: 10, Y1: 10, X2: 60, Y2: 60}},
	}}
	q.CaptureAsync(img, outcome, "cam-1", &domain.Frame{ID: "f-1", Number: 7})

	waitFor(t, time.Second, func() bool {
		u, e := uploader.snapshot()
		return u == 1 && e == 1
	})

	snap := q.Snapshot()
	if snap.TotalCaptured != 1 {
		t.Errorf("expected TotalCaptured=1, got %d", snap.TotalCaptured)
	}
	if snap.SuccessfulUploads != 1 {
		t.Errorf("expected SuccessfulUploads=1, got %d", snap.SuccessfulUploads)
	}

	uploader.mu.Lock()
	got := uploader.uploaded[0]
	uploader.mu.Unlock()
	if got.PersonID != "p-1" || got.CameraID != "cam-1" || got.FrameID != "f-1" {
		t.Errorf("unexpected sighting fields: %+v", got)
	}
}

func TestQueue_SkipsUnmatchedPersons(t *testing.T) {
	uploader := &recordingUploader{}
	q := sightings.NewQueue(uploader)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop(time.Second)

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	outcome := sightings.RecognitionOutcome{Persons: []domain.FaceDetection{{MatchedPersonID: ""}}}
	q.CaptureAsync(img, outcome, "cam-1", &domain.Frame{ID: "f-1"})

	time.Sleep(50 * time.Millisecond)
	snap := q.Snapshot()
	if snap.TotalCaptured != 0 {
		t.Errorf("expected an unmatched detection to never be captured, got %d", snap.TotalCaptured)
	}
}

func TestQueue_UploadFailureDoesNotCountAsSuccessOrCallEvaluate(t *testing.T) {
	uploader := &recordingUploader{uploadErr: errors.New("data service down")}
	q := sightings.NewQueue(uploader)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop(time.Second)

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	outcome := sightings.RecognitionOutcome{Persons: []domain.FaceDetection{
		{MatchedPersonID: "p-1", BBox: domain.BoundingBox{X1: 0, Y1: 0, X2: 80, Y2: 80}},
	}}
	q.CaptureAsync(img, outcome, "cam-1", &domain.Frame{ID: "f-1"})

	time.Sleep(100 * time.Millisecond)
	snap := q.Snapshot()
	if snap.SuccessfulUploads != 0 {
		t.Errorf("expected no successful uploads on a failing uploader, got %d", snap.SuccessfulUploads)
	}
	if _, evaluated := uploader.snapshot(); evaluated != 0 {
		t.Errorf("expected Evaluate to never be called after an upload failure, got %d calls", evaluated)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	blockingUploader := &recordingUploader{}
	q := sightings.NewQueue(blockingUploader)
	// Deliberately not started: the consumer never drains, so the channel
	// fills and CaptureAsync must drop rather than block.
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))

	const capacity = 1000
	for i := 0; i < capacity+5; i++ {
		outcome := sightings.RecognitionOutcome{Persons: []domain.FaceDetection{
			{MatchedPersonID: "p-1", BBox: domain.BoundingBox{X1: 0, Y1: 0, X2: 80, Y2: 80}},
		}}
		q.CaptureAsync(img, outcome, "cam-1", &domain.Frame{ID: "f-1"})
	}

	snap := q.Snapshot()
	if snap.QueueFullDrops == 0 {
		t.Error("expected some captures to be dropped once the queue filled")
	}
	if snap.TotalCaptured != capacity+5 {
		t.Errorf("expected TotalCaptured to count drops too, got %d", snap.TotalCaptured)
	}
}
