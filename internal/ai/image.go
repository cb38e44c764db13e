package ai

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// frameQuality is the JPEG quality of frames sent to an oracle.
const frameQuality = 85

// ErrNoImage is returned for an empty frame.
var ErrNoImage = errors.New("no image data")

// PrepareFrame decodes a camera frame and re-encodes it as JPEG, which is
// what every oracle prompt declares. Frames larger than maxSize on either
// side are scaled down with their aspect ratio kept. maxSize <= 0 disables
// scaling.
func PrepareFrame(data []byte, maxSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var out image.Image = src
	if w, h, scale := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxSize); scale {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: frameQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin returns the target size for a w x h frame bounded by limit and
// whether scaling is needed at all.
func fitWithin(w, h, limit int) (int, int, bool) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h, false
	}
	if w >= h {
		return limit, max(1, h*limit/w), true
	}
	return max(1, w*limit/h), limit, true
}
