package orchestrator

import (
	"context"
	"image"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/frames"
	"github.com/faceguard/core/internal/recognition"
	"github.com/faceguard/core/internal/sightings"
	"github.com/google/uuid"
)

// RecognitionProcessor is the subset of internal/recognition.Client the
// stream loop needs.
type RecognitionProcessor interface {
	Process(ctx context.Context, img image.Image, frame *domain.Frame, confidenceThreshold float64) recognition.Result
}

// SightingCapturer is the subset of internal/sightings.Queue the stream
// loop needs.
type SightingCapturer interface {
	CaptureAsync(img image.Image, result sightings.RecognitionOutcome, cameraID string, frame *domain.Frame)
}

// EventPublisher is the subset of internal/eventbus.Bus the stream loop
// needs to publish a recognition event per frame.
type EventPublisher interface {
	Publish(channel string, event domain.RecognitionEvent)
}

// Decoder turns raw frame bytes into an image.Image for quality scoring
// and recognition encoding; kept as an interface so tests can substitute a
// trivial in-memory decoder.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

// Config bundles the tunables spec.md §4.2/§6 name.
type Config struct {
	MaxConcurrentCameras int
	ConfidenceThreshold  float64
	QualityThreshold     float64
	EventChannel         string
	ServiceVersion       string
}

// Supervisor runs one cooperative stream loop per active camera, with
// blocking capture delegated to a bounded worker pool sized
// MaxConcurrentCameras — adapted from internal/nvr.NVRPoller's
// sem-chan-bounded pollAll/pollNVR fan-out, retargeted at per-camera
// stream loops instead of per-NVR event polling.
type Supervisor struct {
	registry   *Registry
	opener     frames.Opener
	decoder    Decoder
	recognizer RecognitionProcessor
	sightings  SightingCapturer
	bus        EventPublisher
	cfg        Config

	sem chan struct{}
}

func NewSupervisor(registry *Registry, opener frames.Opener, decoder Decoder, recognizer RecognitionProcessor, sightings SightingCapturer, bus EventPublisher, cfg Config) *Supervisor {
	if cfg.MaxConcurrentCameras <= 0 {
		cfg.MaxConcurrentCameras = 8
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.6
	}
	return &Supervisor{
		registry:   registry,
		opener:     opener,
		decoder:    decoder,
		recognizer: recognizer,
		sightings:  sightings,
		bus:        bus,
		cfg:        cfg,
		sem:        make(chan struct{}, cfg.MaxConcurrentCameras),
	}
}

type streamLoop struct {
	cameraID string
	cancel   context.CancelFunc
	done     chan struct{}
}

func (l *streamLoop) stop() {
	if l.cancel != nil {
		l.cancel()
	}
	<-l.done
}

// RecognizeOnce opens a short-lived capture handle, grabs a single frame,
// and runs it through recognition without starting a persistent stream
// loop — the backing call for POST /api/cameras/{id}/recognize.
func (s *Supervisor) RecognizeOnce(ctx context.Context, id string) (recognition.Result, error) {
	cam, err := s.registry.Get(id)
	if err != nil {
		return recognition.Result{}, err
	}

	handle, err := s.opener.Open(&cam)
	if err != nil {
		return recognition.Result{}, err
	}
	defer handle.Close()

	frame, err := s.boundedCapture(ctx, handle)
	if err != nil {
		return recognition.Result{}, err
	}

	img, err := s.decoder.Decode(frame.Data)
	if err != nil {
		return recognition.Result{Success: false, FrameID: frame.ID, Timestamp: time.Now(), Error: "frame decode failed"}, nil
	}
	if s.recognizer == nil {
		return recognition.Result{Success: false, FrameID: frame.ID, Timestamp: time.Now(), Error: "no recognizer configured"}, nil
	}
	return s.recognizer.Process(ctx, img, frame, s.cfg.ConfidenceThreshold), nil
}

// StartCamera launches a stream loop for an already-registered camera.
func (s *Supervisor) StartCamera(id string) error {
	cam, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &streamLoop{cameraID: id, cancel: cancel, done: make(chan struct{})}

	s.registry.mu.Lock()
	s.registry.loops[id] = loop
	s.registry.mu.Unlock()

	go s.runLoop(ctx, loop, cam)
	return nil
}

// runLoop implements spec.md §4.2's per-iteration sequence (a)-(g).
func (s *Supervisor) runLoop(ctx context.Context, loop *streamLoop, cam domain.Camera) {
	defer close(loop.done)

	handle, err := s.opener.Open(&cam)
	if err != nil {
		s.registry.mutate(cam.ID, func(c *domain.Camera) {
			c.Status = domain.CameraError
			c.LastError = err.Error()
			c.ErrorCount++
		})
		return
	}
	defer handle.Close()

	s.registry.mutate(cam.ID, func(c *domain.Camera) {
		c.Status = domain.CameraConnected
		c.StreamState = domain.StreamActive
	})

	interval := frames.FrameInterval(cam.FrameRate)
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()

		// (a) blocking capture delegated to the bounded worker pool.
		frame, err := s.boundedCapture(ctx, handle)
		if err != nil {
			attempts++
			if cam.Reconnect.MaxAttempts > 0 && attempts <= cam.Reconnect.MaxAttempts {
				s.registry.mutate(cam.ID, func(c *domain.Camera) {
					c.Status = domain.CameraError
					c.LastError = err.Error()
					c.ErrorCount++
					c.ReconnectAttempt = attempts
				})
				select {
				case <-time.After(time.Duration(cam.Reconnect.DelaySecs) * time.Second):
					continue
				case <-ctx.Done():
					return
				}
			}
			s.registry.mutate(cam.ID, func(c *domain.Camera) {
				c.Status = domain.CameraError
				c.LastError = err.Error()
				c.StreamState = domain.StreamError
			})
			return
		}
		attempts = 0

		img, decodeErr := s.decoder.Decode(frame.Data)
		if decodeErr == nil {
			// (c) quality scoring
			q := frames.Score(img)
			frame.Quality = &q
			// (d) drop below threshold
			if q.Score < s.cfg.QualityThreshold {
				s.registry.mutate(cam.ID, func(c *domain.Camera) {
					c.FramesProcessed++
					c.LastFrameTime = time.Now()
				})
				s.pace(start, interval)
				continue
			}
		}

		s.registry.mutate(cam.ID, func(c *domain.Camera) {
			c.FramesProcessed++
			c.LastFrameTime = time.Now()
		})

		// (e) submit to recognition, tolerating failure.
		var result recognition.Result
		if img != nil && s.recognizer != nil {
			result = s.recognizer.Process(ctx, img, frame, s.cfg.ConfidenceThreshold)
		} else {
			result = recognition.Result{Success: false, Error: "frame decode failed", FrameID: frame.ID, Timestamp: time.Now()}
		}

		// (f) non-blocking enqueue + event publish.
		if result.Success && s.sightings != nil && img != nil {
			s.sightings.CaptureAsync(img, sightings.RecognitionOutcome{Persons: result.Persons}, cam.ID, frame)
		}
		s.publishEvent(cam.ID, frame, result)

		s.pace(start, interval)
	}
}

// boundedCapture runs the blocking capture call inside the shared
// worker-pool semaphore so the cooperative loop goroutine itself never
// stalls on I/O beyond acquiring a slot.
func (s *Supervisor) boundedCapture(ctx context.Context, handle frames.CaptureHandle) (*domain.Frame, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()
	return handle.Capture()
}

// pace sleeps for frame_interval - processing_time, never negative, per
// spec.md §4.2 step (g).
func (s *Supervisor) pace(start time.Time, interval time.Duration) {
	elapsed := time.Since(start)
	remaining := interval - elapsed
	if remaining > 0 {
		time.Sleep(remaining)
	}
}

func (s *Supervisor) publishEvent(cameraID string, frame *domain.Frame, result recognition.Result) {
	if s.bus == nil {
		return
	}
	persons := make([]domain.DetectedPerson, 0, len(result.Persons))
	for _, p := range result.Persons {
		persons = append(persons, domain.DetectedPerson{
			PersonID:              p.MatchedPersonID,
			BBox:                  [4]float64{p.BBox.X1, p.BBox.Y1, p.BBox.X2, p.BBox.Y2},
			DetectionConfidence:   p.DetectionConfidence,
			RecognitionConfidence: p.RecognitionConfidence,
		})
	}
	quality := 0.0
	if frame.Quality != nil {
		quality = frame.Quality.Score
	}
	event := domain.RecognitionEvent{
		EventID:               uuid.NewString(),
		EventType:             "face_recognition",
		ServiceVersion:        s.cfg.ServiceVersion,
		Timestamp:             time.Now().UTC(),
		CameraID:              cameraID,
		FrameID:               frame.ID,
		PersonsDetected:       persons,
		ProcessingTimeMs:      result.ProcessingTimeMs,
		ConfidenceThreshold:   s.cfg.ConfidenceThreshold,
		FrameMetadata: domain.FrameMetadata{
			Width:        frame.Width,
			Height:       frame.Height,
			QualityScore: quality,
			FrameNumber:  frame.Number,
			FileSize:     frame.ByteSize,
		},
		RecognitionSuccessful: result.Success,
	}
	channel := s.cfg.EventChannel
	if channel == "" {
		channel = "recognition_events"
	}
	s.bus.Publish(channel, event)
}

// StopCamera halts a running stream loop without removing the camera from
// the registry.
func (s *Supervisor) StopCamera(id string) {
	s.registry.mu.Lock()
	loop, ok := s.registry.loops[id]
	if ok {
		delete(s.registry.loops, id)
	}
	s.registry.mu.Unlock()
	if ok {
		loop.stop()
		s.registry.mutate(id, func(c *domain.Camera) {
			c.StreamState = domain.StreamStopped
		})
	}
}

