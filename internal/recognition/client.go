// Package recognition talks to the external face-recognition engine: it
// JPEG-encodes a frame, posts it as multipart form data, and retries on
// failure with the spec's linear-ish backoff.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/faceguard/core/internal/domain"
)

const jpegQuality = 85

// Result mirrors spec.md §4.3's RecognitionResult: a value, never an
// exception, so the hot path can absorb a failed call and keep going.
type Result struct {
	Success          bool
	Persons          []domain.FaceDetection
	ProcessingTimeMs float64
	FrameID          string
	Timestamp        time.Time
	Error            string
}

// Client processes frames against the recognition engine. RetryAttempts
// and Timeout are read once at construction; callers that need different
// values per call should build another Client.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	retryAttempts int
}

func NewClient(baseURL string, timeout time.Duration, retryAttempts int) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		retryAttempts: retryAttempts,
	}
}

// Process encodes frame as JPEG and submits it to the recognition engine,
// retrying with delay (attempt+1)*0.5s up to retryAttempts. It always
// returns a Result — the final failing attempt's Result on exhaustion —
// never an error, per spec.md §4.3: "returns the final failing result (not
// an exception) after retries are exhausted".
func (c *Client) Process(ctx context.Context, img image.Image, frame *domain.Frame, confidenceThreshold float64) Result {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Result{Success: false, FrameID: frame.ID, Timestamp: time.Now(), Error: fmt.Sprintf("jpeg encode: %v", err)}
	}
	payload := buf.Bytes()

	var last Result
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{Success: false, FrameID: frame.ID, Timestamp: time.Now(), Error: ctx.Err().Error()}
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		res, err := c.attempt(ctx, payload, frame, confidenceThreshold)
		if err == nil {
			return res
		}
		last = Result{Success: false, FrameID: frame.ID, Timestamp: time.Now(), Error: err.Error()}
	}
	return last
}

func (c *Client) attempt(ctx context.Context, jpegBytes []byte, frame *domain.Frame, confidenceThreshold float64) (Result, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("frame", frame.ID+".jpg")
	if err != nil {
		return Result{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(jpegBytes)); err != nil {
		return Result{}, fmt.Errorf("write multipart body: %w", err)
	}
	_ = w.WriteField("confidence_threshold", strconv.FormatFloat(confidenceThreshold, 'f', -1, 64))
	_ = w.WriteField("camera_id", frame.CameraID)
	_ = w.WriteField("frame_number", strconv.FormatInt(frame.Number, 10))
	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", body)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("recognitionError: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("recognitionError: engine returned %d", resp.StatusCode)
	}

	var wire wireResult
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Result{}, fmt.Errorf("recognitionError: decode response: %w", err)
	}

	persons := make([]domain.FaceDetection, 0, len(wire.Persons))
	for _, p := range wire.Persons {
		persons = append(persons, domain.FaceDetection{
			BBox:                  domain.BoundingBox{X1: p.BBox[0], Y1: p.BBox[1], X2: p.BBox[2], Y2: p.BBox[3]},
			DetectionConfidence:   p.DetectionConfidence,
			RecognitionConfidence: p.RecognitionConfidence,
			MatchedPersonID:       p.PersonID,
		})
	}
	return Result{
		Success:          true,
		Persons:          persons,
		ProcessingTimeMs: float64(time.Since(start).Milliseconds()),
		FrameID:          frame.ID,
		Timestamp:        time.Now(),
	}, nil
}

type wireResult struct {
	Persons []wirePerson `json:"persons"`
}

type wirePerson struct {
	BBox                  [4]float64 `json:"bbox"`
	DetectionConfidence   float64    `json:"detection_confidence"`
	RecognitionConfidence float64    `json:"recognition_confidence"`
	PersonID              string     `json:"person_id,omitempty"`
}
