package gallery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"go.uber.org/zap"

	"github.com/fruitsalade/mediakit/internal/logging"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// ExifTags maps EXIF field names to their stringified values.
type ExifTags map[string]string

// ifdFieldNames names IFD tags goexif does not map to a field. Tags found in
// neither table are reported as UnknownTag_<hex id>.
var ifdFieldNames = map[uint16]string{
	0x4746: "Rating",
	0x4749: "RatingPercent",
	0xC612: "DNGVersion",
	0xC613: "DNGBackwardVersion",
	0xC614: "UniqueCameraModel",
	0xC615: "LocalizedCameraModel",
	0xC62F: "CameraSerialNumber",
	0xA430: "CameraOwnerName",
	0xA431: "BodySerialNumber",
	0xA435: "LensSerialNumber",
}

// ifd0FieldNames covers the IFD0 tags goexif does map, so both decode paths
// agree on names.
var ifd0FieldNames = map[uint16]exif.FieldName{
	0x010E: exif.ImageDescription,
	0x010F: exif.Make,
	0x0110: exif.Model,
	0x0112: exif.Orientation,
	0x011A: exif.XResolution,
	0x011B: exif.YResolution,
	0x0128: exif.ResolutionUnit,
	0x0131: exif.Software,
	0x0132: exif.DateTime,
	0x013B: exif.Artist,
	0x8298: exif.Copyright,
}

// ExtractExifTags decodes the EXIF block of the file at path on its own
// goroutine and waits for it or for ctx. Metadata is best-effort: a missing
// file, missing EXIF, a decoder failure or cancellation all report ok=false.
func ExtractExifTags(ctx context.Context, path string) (ExifTags, bool) {
	return extractWith(ctx, path, readExifFile)
}

func extractWith(ctx context.Context, path string, read func(string) (ExifTags, bool)) (ExifTags, bool) {
	start := time.Now()

	type result struct {
		tags ExifTags
		ok   bool
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Debug("exif decoder panicked", logging.String("path", path), zap.Any("panic", r))
				done <- result{}
			}
		}()
		tags, ok := read(path)
		done <- result{tags: tags, ok: ok}
	}()

	select {
	case res := <-done:
		if res.ok {
			metrics.RecordExif(metrics.ExifFound, time.Since(start))
		} else {
			metrics.RecordExif(metrics.ExifAbsent, time.Since(start))
		}
		return res.tags, res.ok
	case <-ctx.Done():
		metrics.RecordExif(metrics.ExifCancelled, time.Since(start))
		return nil, false
	}
}

func readExifFile(path string) (ExifTags, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	return ReadExifTags(f)
}

// ReadExifTags decodes EXIF from r synchronously. When goexif rejects the
// block or maps none of its tags, the raw IFDs are read directly.
func ReadExifTags(r io.Reader) (ExifTags, bool) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}

	var tags ExifTags
	x, err := exif.Decode(bytes.NewReader(data))
	if x != nil && (err == nil || !exif.IsCriticalError(err)) {
		tags = walkTags(x)
	}
	if len(tags) == 0 {
		tags = ifdTags(data)
	}
	if len(tags) == 0 {
		return nil, false
	}
	return tags, true
}

type tagCollector ExifTags

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = tagString(tag)
	return nil
}

func walkTags(x *exif.Exif) ExifTags {
	tags := ExifTags{}
	if err := x.Walk(tagCollector(tags)); err != nil {
		return nil
	}
	return tags
}

// ifdTags reads every tag of every top-level IFD in a TIFF stream or in the
// APP1 segment of a JPEG.
func ifdTags(data []byte) ExifTags {
	if bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		i := bytes.Index(data, []byte("Exif\x00\x00"))
		if i < 0 {
			return nil
		}
		data = data[i+6:]
	}
	t, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	tags := ExifTags{}
	for _, d := range t.Dirs {
		for _, tag := range d.Tags {
			name := ifdFieldName(tag.Id)
			if _, seen := tags[name]; !seen {
				tags[name] = tagString(tag)
			}
		}
	}
	return tags
}

func ifdFieldName(id uint16) string {
	if name, ok := ifd0FieldNames[id]; ok {
		return string(name)
	}
	if name, ok := ifdFieldNames[id]; ok {
		return name
	}
	return fmt.Sprintf("%s%x", exif.UnknownPrefix, id)
}

// tagString renders string tags without the quoting tiff.Tag.String adds.
func tagString(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			return s
		}
	}
	return tag.String()
}

// ExifSummary holds the EXIF fields thumbnailing and listings care about.
type ExifSummary struct {
	Width       int
	Height      int
	CameraMake  string
	CameraModel string
	DateTaken   *time.Time
	Orientation int
}

// ExtractExif reads a typed summary from r.
// Missing EXIF is not an error; the summary then has Orientation 1.
func ExtractExif(r io.Reader) *ExifSummary {
	d := &ExifSummary{Orientation: 1}

	x, err := exif.Decode(r)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return d
	}

	d.CameraMake = getTagString(x, exif.Make)
	d.CameraModel = getTagString(x, exif.Model)

	if dt, err := x.DateTime(); err == nil {
		d.DateTaken = &dt
	}

	if orient, err := x.Get(exif.Orientation); err == nil {
		if v, err := orient.Int(0); err == nil && v >= 1 && v <= 8 {
			d.Orientation = v
		}
	}

	if pw, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := pw.Int(0); err == nil {
			d.Width = v
		}
	}
	if ph, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := ph.Int(0); err == nil {
			d.Height = v
		}
	}

	return d
}

func getTagString(x *exif.Exif, f exif.FieldName) string {
	tag, err := x.Get(f)
	if err != nil {
		return ""
	}
	return tagString(tag)
}
