package vectorindex

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"image"
)

// PerceptualHash samples an 8x8 grid of gray values from img and
// thresholds them against their mean, the classic aHash — cheap enough to
// run per-frame and stable against small brightness shifts. It keys the
// recognition-result cache (recognition.CachingProcessor); no caller reads
// or writes the processed-image cache.
func PerceptualHash(img image.Image) string {
	b := img.Bounds()
	const size = 8
	var gray [size][size]float64
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			sx := b.Min.X + x*b.Dx()/size
			sy := b.Min.Y + y*b.Dy()/size
			r, g, bl, _ := img.At(sx, sy).RGBA()
			v := (0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8))
			gray[y][x] = v
			sum += v
		}
	}
	mean := sum / float64(size*size)
	var bits uint64
	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if gray[y][x] >= mean {
				bits |= 1 << uint(i)
			}
			i++
		}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return hex.EncodeToString(buf[:])
}

// QuantizeEmbeddingKey truncates each component toward zero at 4 decimal
// places before hashing, so near-duplicate embeddings (the same face, re-encoded) share
// a cache key the way spec.md §4.4 describes.
func QuantizeEmbeddingKey(v []float32) string {
	h := sha1.New()
	buf := make([]byte, 4)
	for _, x := range v {
		q := int32(x * 10000)
		binary.BigEndian.PutUint32(buf, uint32(q))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
