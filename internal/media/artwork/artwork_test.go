package artwork

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAnalyze(t *testing.T) {
	info, err := Analyze(pngBytes(t, 300, 200))
	require.NoError(t, err)

	assert.Equal(t, "image/png", info.MimeType)
	assert.Equal(t, 300, info.Width)
	assert.Equal(t, 200, info.Height)
	assert.NotEmpty(t, info.BlurHash)
}

func TestAnalyzeSmallImage(t *testing.T) {
	info, err := Analyze(pngBytes(t, 16, 16))
	require.NoError(t, err)
	assert.NotEmpty(t, info.BlurHash)
}

func TestAnalyzeRejectsGarbage(t *testing.T) {
	_, err := Analyze([]byte("definitely not an image"))
	assert.Error(t, err)
}
