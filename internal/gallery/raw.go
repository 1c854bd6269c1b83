package gallery

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/fruitsalade/mediakit/internal/metrics"
)

// rawExtensions are camera RAW formats.
var rawExtensions = []string{
	".cr2", ".cr3", ".nef", ".arw", ".dng", ".orf", ".rw2", ".pef", ".srw", ".raf",
}

// IsRawFile checks if a file path has a camera RAW extension.
func IsRawFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range rawExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ThumbFormat is the encoding of an embedded RAW preview.
type ThumbFormat int

const (
	ThumbUnknown ThumbFormat = iota
	ThumbJPEG
	ThumbBitmap
)

func (f ThumbFormat) String() string {
	switch f {
	case ThumbJPEG:
		return "jpeg"
	case ThumbBitmap:
		return "bitmap"
	default:
		return "unknown"
	}
}

// Thumbnail is an embedded preview. JPEG previews carry Data, bitmap
// previews carry an already decoded Bitmap.
type Thumbnail struct {
	Format ThumbFormat
	Data   []byte
	Bitmap image.Image
}

var (
	// ErrNoThumbnail means the RAW file embeds no preview.
	ErrNoThumbnail = errors.New("raw: no embedded thumbnail")
	// ErrUnsupportedThumbnail means the embedded preview uses an encoding we
	// cannot decode.
	ErrUnsupportedThumbnail = errors.New("raw: unsupported thumbnail format")
)

// PostprocessParams controls development of the sensor data.
type PostprocessParams struct {
	UseCameraWB bool
	UseAutoWB   bool
	OutputBPS   int
}

// previewParams are fixed for preview rendering.
var previewParams = PostprocessParams{
	UseCameraWB: false,
	UseAutoWB:   true,
	OutputBPS:   8,
}

// RawImage is an opened RAW file. Close must be called when done.
type RawImage interface {
	ExtractThumbnail() (*Thumbnail, error)
	Postprocess(params PostprocessParams) (image.Image, error)
	Close() error
}

// RawOpener opens RAW file contents.
type RawOpener interface {
	Open(data []byte) (RawImage, error)
}

// RawOpenerFunc adapts a function to RawOpener.
type RawOpenerFunc func(data []byte) (RawImage, error)

// Open calls f(data).
func (f RawOpenerFunc) Open(data []byte) (RawImage, error) { return f(data) }

// DefaultRawOpener decodes TIFF-structured RAW files.
var DefaultRawOpener RawOpener = RawOpenerFunc(OpenTIFFRaw)

// ExtractRawThumbnail returns a viewable image for RAW file contents using
// DefaultRawOpener.
func ExtractRawThumbnail(data []byte) (image.Image, error) {
	return ExtractRawThumbnailWith(DefaultRawOpener, data)
}

// ExtractRawThumbnailWith prefers the embedded JPEG or bitmap preview and
// develops the sensor data when there is none or its format is unsupported.
// Decoder failures are returned to the caller.
func ExtractRawThumbnailWith(opener RawOpener, data []byte) (image.Image, error) {
	img, path, err := extractRaw(opener, data)
	if err != nil {
		metrics.RecordRawExtraction(metrics.RawFailed)
		return nil, err
	}
	metrics.RecordRawExtraction(path)
	return img, nil
}

func extractRaw(opener RawOpener, data []byte) (image.Image, string, error) {
	raw, err := opener.Open(data)
	if err != nil {
		return nil, "", fmt.Errorf("open raw: %w", err)
	}
	defer raw.Close()

	thumb, err := raw.ExtractThumbnail()
	switch {
	case err == nil:
		img, err := decodeThumbnail(thumb)
		if err == nil {
			return img, metrics.RawEmbedded, nil
		}
		if !errors.Is(err, ErrUnsupportedThumbnail) {
			return nil, "", err
		}
	case errors.Is(err, ErrNoThumbnail), errors.Is(err, ErrUnsupportedThumbnail):
	default:
		return nil, "", fmt.Errorf("extract thumbnail: %w", err)
	}

	img, err := raw.Postprocess(previewParams)
	if err != nil {
		return nil, "", fmt.Errorf("postprocess raw: %w", err)
	}
	return img, metrics.RawProcessed, nil
}

func decodeThumbnail(t *Thumbnail) (image.Image, error) {
	if t == nil {
		return nil, ErrUnsupportedThumbnail
	}
	switch t.Format {
	case ThumbJPEG:
		img, err := jpeg.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, fmt.Errorf("decode jpeg thumbnail: %w", err)
		}
		return img, nil
	case ThumbBitmap:
		if t.Bitmap == nil {
			return nil, fmt.Errorf("bitmap thumbnail without pixels: %w", ErrUnsupportedThumbnail)
		}
		return t.Bitmap, nil
	default:
		return nil, ErrUnsupportedThumbnail
	}
}
