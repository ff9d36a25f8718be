package frames_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/frames"
)

func TestHTTPOpener_CaptureSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	opener := frames.HTTPOpener{}
	handle, err := opener.Open(&domain.Camera{ID: "cam-1", SourceURI: srv.URL})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	frame, err := handle.Capture()
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.CameraID != "cam-1" {
		t.Errorf("expected camera id cam-1, got %q", frame.CameraID)
	}
	if string(frame.Data) != "fake-jpeg-bytes" {
		t.Errorf("unexpected frame data: %q", frame.Data)
	}
	if frame.Number != 1 {
		t.Errorf("expected first capture to be numbered 1, got %d", frame.Number)
	}

	frame2, err := handle.Capture()
	if err != nil {
		t.Fatalf("second Capture failed: %v", err)
	}
	if frame2.Number != 2 {
		t.Errorf("expected second capture to be numbered 2, got %d", frame2.Number)
	}
}

func TestHTTPOpener_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opener := frames.HTTPOpener{}
	handle, err := opener.Open(&domain.Camera{ID: "cam-1", SourceURI: srv.URL})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	if _, err := handle.Capture(); !errors.Is(err, frames.ErrCapture) {
		t.Errorf("expected ErrCapture for a non-200 response, got %v", err)
	}
}

func TestHTTPOpener_RejectsSourceWithoutHost(t *testing.T) {
	opener := frames.HTTPOpener{}
	if _, err := opener.Open(&domain.Camera{ID: "cam-1", SourceURI: "not-a-url"}); !errors.Is(err, frames.ErrConnect) {
		t.Errorf("expected ErrConnect for a hostless source, got %v", err)
	}
}
