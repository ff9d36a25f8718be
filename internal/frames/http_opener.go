package frames

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/faceguard/core/internal/domain"
	"github.com/google/uuid"
)

// HTTPOpener polls an HTTP(S) snapshot endpoint once per Capture call,
// grounded on internal/discovery/onvif_client.go's plain net/http GET +
// timeout pattern — the only networked camera source this module can back
// without a CGO video decoder (see CaptureHandle's doc comment).
type HTTPOpener struct {
	Client  *http.Client
	Timeout time.Duration
}

type httpHandle struct {
	client   *http.Client
	uri      string
	cameraID string
	counter  int64
}

func (o HTTPOpener) Open(cam *domain.Camera) (CaptureHandle, error) {
	if _, err := ParseHTTPSource(cam.SourceURI); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	client := o.Client
	if client == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &httpHandle{client: client, uri: cam.SourceURI, cameraID: cam.ID}, nil
}

func (h *httpHandle) Capture() (*domain.Frame, error) {
	resp, err := h.client.Get(h.uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot endpoint returned %d", ErrCapture, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	n := atomic.AddInt64(&h.counter, 1)
	return &domain.Frame{
		ID:        uuid.NewString(),
		CameraID:  h.cameraID,
		Timestamp: time.Now().UTC(),
		Number:    n,
		ByteSize:  len(data),
		Data:      data,
	}, nil
}

func (h *httpHandle) Close() error { return nil }
