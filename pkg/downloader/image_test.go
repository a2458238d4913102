package downloader

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webpFixture returns real lossy WEBP bytes.
func webpFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "sample.lossy.webp"))
	require.NoError(t, err)
	return data
}

// encodeTestImage produces real image bytes of the given size.
func encodeTestImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	default:
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func TestNormalizeImagePassThrough(t *testing.T) {
	data := encodeTestImage(t, 100, 80, "jpeg")
	out, err := normalizeImage(data, ".jpg", 2000, 85)
	require.NoError(t, err)
	// Small enough and already the right format: bytes untouched.
	assert.Equal(t, data, out)
}

func TestNormalizeImageDownscalesOversized(t *testing.T) {
	data := encodeTestImage(t, 2500, 1000, "png")
	out, err := normalizeImage(data, ".png", 2000, 85)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 2000, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestNormalizeImageDownscalesPortrait(t *testing.T) {
	data := encodeTestImage(t, 1000, 2500, "jpeg")
	out, err := normalizeImage(data, ".jpg", 2000, 85)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 2000, img.Bounds().Dy())
}

func TestNormalizeImageConvertsWebpToJpeg(t *testing.T) {
	data := webpFixture(t)
	_, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "webp", format)

	out, err := normalizeImage(data, extFor("image/webp", "https://cdn.tise.com/x/orig"), 2000, 85)
	require.NoError(t, err)
	assert.NotEqual(t, data, out)

	_, format, err = image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, err := normalizeImage([]byte("definitely not an image"), ".jpg", 2000, 85)
	assert.Error(t, err)
}
