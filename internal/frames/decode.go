package frames

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// StdDecoder decodes a captured frame's raw bytes into an image.Image
// using the standard library's registered codecs (JPEG, PNG — the formats
// Capture implementations and the sighting crop/upload path produce and
// consume). No ecosystem image-codec library in the example pack covers
// decode any more completely than image.Decode for these two formats, so
// this stays on the standard library rather than adding a dependency
// whose only job would be what image.Decode already does.
type StdDecoder struct{}

func (StdDecoder) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
