package frames_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/faceguard/core/internal/frames"
)

func TestStdDecoder_JPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	d := frames.StdDecoder{}
	decoded, err := d.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 4 {
		t.Errorf("unexpected decoded bounds: %v", decoded.Bounds())
	}
}

func TestStdDecoder_PNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	d := frames.StdDecoder{}
	if _, err := d.Decode(buf.Bytes()); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
}

func TestStdDecoder_InvalidData(t *testing.T) {
	d := frames.StdDecoder{}
	if _, err := d.Decode([]byte("not an image")); err == nil {
		t.Error("expected an error decoding garbage data")
	}
}
