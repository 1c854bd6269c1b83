// Package gallery extracts image metadata and previews: EXIF tags, embedded
// RAW thumbnails and resized JPEG thumbnails.
package gallery

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultThumbMaxSize = 400
	DefaultThumbQuality = 80
)

// ThumbOptions controls thumbnail size and JPEG quality.
type ThumbOptions struct {
	MaxSize int
	Quality int
}

func (o ThumbOptions) withDefaults() ThumbOptions {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultThumbMaxSize
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultThumbQuality
	}
	return o
}

// GenerateThumbnail applies EXIF orientation, fits img within MaxSize x
// MaxSize preserving aspect ratio, and returns the JPEG bytes.
func GenerateThumbnail(img image.Image, orientation int, opts ThumbOptions) ([]byte, int, int, error) {
	opts = opts.withDefaults()

	img = applyOrientation(img, orientation)
	thumb := imaging.Fit(img, opts.MaxSize, opts.MaxSize, imaging.Lanczos)

	bounds := thumb.Bounds()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// DecodeImage decodes a regular (non-RAW) image.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Preview returns a viewable image for file contents: RAW files go through
// the RAW extractor, everything else through the regular decoders.
func Preview(name string, data []byte) (image.Image, error) {
	if IsRawFile(name) {
		return ExtractRawThumbnail(data)
	}
	return DecodeImage(bytes.NewReader(data))
}

// applyOrientation transforms an image according to EXIF orientation value.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
