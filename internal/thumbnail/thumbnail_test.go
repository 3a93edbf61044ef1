package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, width  int
		wantW, wantH int
	}{
		{"landscape", 800, 600, 200, 200, 150},
		{"portrait", 600, 800, 200, 200, 267},
		{"square", 1024, 1024, 200, 200, 200},
		{"upscale", 100, 50, 200, 200, 100},
		{"rounds half up", 3, 1, 2, 2, 1},
		{"very wide clamps", 10000, 1, 200, 200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := Dimensions(tt.w, tt.h, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestDimensionsInvalid(t *testing.T) {
	tests := []struct {
		name        string
		w, h, width int
	}{
		{"zero width source", 0, 600, 200},
		{"zero height source", 800, 0, 200},
		{"zero target", 800, 600, 0},
		{"negative target", 800, 600, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Dimensions(tt.w, tt.h, tt.width)
			assert.True(t, errors.Is(err, ErrInvalidImage))
		})
	}
}

func TestGenerate(t *testing.T) {
	thumb, err := Generate(solid(800, 600), 200)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 150), thumb.Bounds())
}

func TestGenerateDeterministic(t *testing.T) {
	src := solid(640, 480)

	a, err := Generate(src, 120)
	require.NoError(t, err)
	b, err := Generate(src, 120)
	require.NoError(t, err)

	assert.Equal(t, a.Bounds(), b.Bounds())
	assert.Equal(t, a.(*image.RGBA).Pix, b.(*image.RGBA).Pix)
}

func TestGenerateOffsetBounds(t *testing.T) {
	src := solid(900, 300).(*image.RGBA).SubImage(image.Rect(100, 0, 900, 300))

	thumb, err := Generate(src, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, thumb.Bounds().Dx())
	assert.Equal(t, 75, thumb.Bounds().Dy())
}

func TestGenerateInvalid(t *testing.T) {
	_, err := Generate(image.NewRGBA(image.Rect(0, 0, 0, 10)), 200)
	assert.True(t, errors.Is(err, ErrInvalidImage))

	_, err = Generate(solid(10, 10), 0)
	assert.True(t, errors.Is(err, ErrInvalidImage))

	_, err = Generate(nil, 200)
	assert.True(t, errors.Is(err, ErrInvalidImage))
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(40, 30)))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	out, err := Encode(img)
	require.NoError(t, err)

	back, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), back.Bounds())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"))
	assert.True(t, errors.Is(err, ErrInvalidImage))
}
