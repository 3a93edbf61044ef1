// Package thumbnail downsamples imported images to fixed-width thumbnails.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	// Decoders for image.Decode.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DefaultWidth is the thumbnail width used when none is configured.
const DefaultWidth = 200

// JPEGQuality is used for both stored images and thumbnails.
const JPEGQuality = 80

// ErrInvalidImage is returned for zero-sized sources or non-positive widths.
var ErrInvalidImage = errors.New("invalid image")

// Dimensions returns the thumbnail size for a w x h source scaled to width,
// preserving aspect ratio. Height is round(width*h/w), clamped to at least 1.
func Dimensions(w, h, width int) (int, int, error) {
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: source is %dx%d", ErrInvalidImage, w, h)
	}
	if width <= 0 {
		return 0, 0, fmt.Errorf("%w: target width %d", ErrInvalidImage, width)
	}
	height := int(math.Round(float64(width) * float64(h) / float64(w)))
	if height < 1 {
		height = 1
	}
	return width, height, nil
}

// Generate scales src to width pixels wide with a Catmull-Rom filter.
func Generate(src image.Image, width int) (image.Image, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	b := src.Bounds()
	tw, th, err := Dimensions(b.Dx(), b.Dy(), width)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}

// Decode parses raw image bytes in any registered format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Encode serializes img as JPEG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
