// Package artwork derives display metadata (BlurHash placeholder, pixel
// dimensions) from decrypted artwork bytes before they enter the cache.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize is the target size for BlurHash computation.
// BlurHash doesn't need high resolution - a small thumbnail produces nearly
// identical results and cuts computation to milliseconds.
const blurHashSize = 64

// Info is what we can cheaply derive from raw artwork bytes.
type Info struct {
	BlurHash string
	MimeType string
	Width    int
	Height   int
}

// Analyze decodes artwork bytes and computes placeholder metadata.
func Analyze(data []byte) (*Info, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	info := &Info{
		MimeType: "image/" + format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}

	// 4 horizontal, 3 vertical components - good balance of size and detail
	// for square-ish cover art.
	hash, err := blurhash.Encode(4, 3, resizeForBlurHash(img))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}
	info.BlurHash = hash

	return info, nil
}

// resizeForBlurHash creates a small thumbnail suitable for BlurHash
// computation. Nearest-neighbor scaling is fast and sufficient here.
func resizeForBlurHash(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth <= blurHashSize && srcHeight <= blurHashSize {
		return img
	}

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = blurHashSize
		dstHeight = max((srcHeight*blurHashSize)/srcWidth, 1)
	} else {
		dstHeight = blurHashSize
		dstWidth = max((srcWidth*blurHashSize)/srcHeight, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))

	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := 0; y < dstHeight; y++ {
		for x := 0; x < dstWidth; x++ {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}
