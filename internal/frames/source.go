// Package frames opens capture handles against a camera's source URI and
// scores each captured frame for quality before it is handed to the
// recognition client.
package frames

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/faceguard/core/internal/domain"
)

// SourceKind mirrors the discriminated-by-prefix detection spec.md §4.1
// describes: all-digits is a local device index, rtsp/rtmp is a streaming
// protocol, http(s) is a networked camera, anything else with a file
// extension (or file:// scheme) is a file source.
type SourceKind string

const (
	SourceDevice SourceKind = "device"
	SourceRTSP   SourceKind = "rtsp"
	SourceHTTP   SourceKind = "http"
	SourceFile   SourceKind = "file"
)

var knownFileExts = map[string]bool{
	".mp4": true, ".avi": true, ".mkv": true, ".mov": true, ".jpg": true, ".jpeg": true, ".png": true,
}

// DetectSourceKind classifies a Camera.SourceURI the same way the teacher's
// RTSP-vs-HTTP adapter factory branched on URL scheme (see
// internal/nvr/adapters/factory.go), extended to the device-index and file
// cases FaceGuard's Camera model needs.
func DetectSourceKind(uri string) SourceKind {
	if uri == "" {
		return SourceFile
	}
	if _, err := strconv.Atoi(uri); err == nil {
		return SourceDevice
	}
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "rtsp://"), strings.HasPrefix(lower, "rtsps://"), strings.HasPrefix(lower, "rtmp://"):
		return SourceRTSP
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceHTTP
	case strings.HasPrefix(lower, "file://"):
		return SourceFile
	}
	if knownFileExts[strings.ToLower(filepath.Ext(uri))] {
		return SourceFile
	}
	return SourceFile
}

var (
	ErrCapture = errors.New("captureError")
	ErrConnect = errors.New("connectError")
)

// CaptureHandle is the opaque per-camera capture resource the stream loop
// holds for its lifetime. A real implementation backs this with a CGO video
// decoder or device driver; this module treats frame bytes as opaque,
// matching the spec's stance that the recognition engine (and by extension
// the raw decode path) is an external collaborator.
type CaptureHandle interface {
	// Capture blocks until the next frame is available or the handle fails.
	// It is expected to run on a bounded worker pool, never on the
	// cooperative stream-loop goroutine directly.
	Capture() (*domain.Frame, error)
	Close() error
}

// Opener opens a CaptureHandle for a camera's source URI. HTTPOpener does
// not apply the camera's Width, Height or FrameRate to the capture; the
// stream loop paces reads by FrameRate. Kept as an interface so tests can
// substitute a fake handle without a real video source.
type Opener interface {
	Open(cam *domain.Camera) (CaptureHandle, error)
}

// nopHandle is a CaptureHandle that always fails; it exists so a camera
// whose source kind has no wired opener still fails safely through the
// normal reconnect/error path instead of a nil-pointer panic.
type nopHandle struct{ reason string }

func (n nopHandle) Capture() (*domain.Frame, error) { return nil, fmt.Errorf("%w: %s", ErrConnect, n.reason) }
func (n nopHandle) Close() error                    { return nil }

// MultiOpener dispatches to a per-kind Opener, falling back to a handle
// that always reports connectError for kinds with nothing registered.
type MultiOpener struct {
	Device Opener
	RTSP   Opener
	HTTP   Opener
	File   Opener
}

func (m MultiOpener) Open(cam *domain.Camera) (CaptureHandle, error) {
	kind := DetectSourceKind(cam.SourceURI)
	var o Opener
	switch kind {
	case SourceDevice:
		o = m.Device
	case SourceRTSP:
		o = m.RTSP
	case SourceHTTP:
		o = m.HTTP
	case SourceFile:
		o = m.File
	}
	if o == nil {
		return nopHandle{reason: fmt.Sprintf("no opener registered for source kind %q", kind)}, nil
	}
	return o.Open(cam)
}

// ParseHTTPSource validates that an http(s) source URI is well-formed
// before it's handed to whatever HTTP camera client backs it.
func ParseHTTPSource(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrConnect, uri)
	}
	return u, nil
}

// FrameInterval is the target pacing sleep for a camera's frame rate; the
// stream loop subtracts elapsed processing time from this and never sleeps
// a negative duration.
func FrameInterval(frameRate int) time.Duration {
	if frameRate <= 0 {
		frameRate = 1
	}
	return time.Second / time.Duration(frameRate)
}
