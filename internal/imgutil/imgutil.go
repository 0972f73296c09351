// Package imgutil decodes and scales gallery photos. Importing it
// registers decoders for every photo format the source accepts.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// Decode parses photo bytes into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Resize scales an image to fit within maxSize while keeping aspect ratio.
// Images already within bounds are returned unchanged. Returns JPEG bytes.
func Resize(data []byte, maxSize int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return data, nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	return EncodeJPEG(resized)
}

// CropSquare cuts the given rectangle out of an image, grows it by padding
// pixels of context on every side, clamps to the image bounds and scales
// the result to a size x size square. Returns JPEG bytes.
func CropSquare(img image.Image, crop image.Rectangle, padding, size int) ([]byte, error) {
	bounds := img.Bounds()
	crop = image.Rect(
		crop.Min.X-padding,
		crop.Min.Y-padding,
		crop.Max.X+padding,
		crop.Max.Y+padding,
	).Intersect(bounds)
	if crop.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", crop, bounds)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)

	return EncodeJPEG(dst)
}

// EncodeJPEG encodes an image with the gallery's JPEG quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
