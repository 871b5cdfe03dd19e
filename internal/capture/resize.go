package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

const (
	// MaxEdge caps the longest side of a downscaled hand-off image.
	MaxEdge = 1200
	// FallbackQuality is the JPEG quality of a downscaled image.
	FallbackQuality = 85
)

// ScaledSize returns the dimensions of a w×h image fitted inside maxEdge,
// preserving aspect ratio. Sizes already within the cap are returned as is.
func ScaledSize(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		return maxEdge, max(1, int(math.Round(float64(h)*float64(maxEdge)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(maxEdge)/float64(h)))), maxEdge
}

// Downscale decodes data, fits it inside maxEdge and re-encodes it as a JPEG
// data URL at the given quality.
func Downscale(data []byte, maxEdge, quality int) (*EncodedImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := ScaledSize(bounds.Dx(), bounds.Dy(), maxEdge)

	// JPEG has no alpha; flatten onto white so transparent areas don't turn black.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	img := NewEncodedImage("image/jpeg", buf.Bytes())
	img.Width, img.Height = w, h
	return img, nil
}
