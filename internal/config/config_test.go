package config_test

import (
	"testing"

	"github.com/faceguard/core/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.ServicePort != 8080 {
		t.Errorf("expected default port 8080, got %d", c.ServicePort)
	}
	if c.CameraFrameRate != 5 {
		t.Errorf("expected default frame rate 5, got %d", c.CameraFrameRate)
	}
	if len(c.CameraSources) != 0 {
		t.Errorf("expected no camera sources by default, got %v", c.CameraSources)
	}
	if !c.Features.MultiCamera {
		t.Error("expected multi-camera feature on by default")
	}
}

func TestLoad_CameraSourcesSplit(t *testing.T) {
	t.Setenv("CAMERA_SOURCES", "cam-1, cam-2 ,cam-3")
	c, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []string{"cam-1", "cam-2", "cam-3"}
	if len(c.CameraSources) != len(want) {
		t.Fatalf("expected %v, got %v", want, c.CameraSources)
	}
	for i, w := range want {
		if c.CameraSources[i] != w {
			t.Errorf("index %d: expected %q, got %q", i, w, c.CameraSources[i])
		}
	}
}

func TestLoad_ValidationRanges(t *testing.T) {
	cases := []struct {
		name string
		env  string
		val  string
	}{
		{"frame rate too high", "CAMERA_FRAME_RATE", "31"},
		{"frame rate zero", "CAMERA_FRAME_RATE", "0"},
		{"reconnect attempts too high", "CAMERA_RECONNECT_ATTEMPTS", "11"},
		{"reconnect delay too high", "CAMERA_RECONNECT_DELAY", "61"},
		{"quality threshold negative", "FRAME_QUALITY_THRESHOLD", "-0.1"},
		{"quality threshold over one", "FRAME_QUALITY_THRESHOLD", "1.1"},
		{"max concurrent cameras too high", "MAX_CONCURRENT_CAMERAS", "17"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.env, tc.val)
			if _, err := config.Load(); err == nil {
				t.Errorf("expected validation error for %s=%s", tc.env, tc.val)
			}
		})
	}
}

func TestLoad_ValidationBoundariesPass(t *testing.T) {
	t.Setenv("CAMERA_FRAME_RATE", "30")
	t.Setenv("CAMERA_RECONNECT_ATTEMPTS", "10")
	t.Setenv("CAMERA_RECONNECT_DELAY", "60")
	t.Setenv("FRAME_QUALITY_THRESHOLD", "1")
	t.Setenv("MAX_CONCURRENT_CAMERAS", "16")
	if _, err := config.Load(); err != nil {
		t.Errorf("expected boundary values to pass validation, got %v", err)
	}
}
