package gallery

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"

	"github.com/rwcarlsen/goexif/tiff"
	xtiff "golang.org/x/image/tiff"
)

// TIFF/DNG tag IDs read by the RAW decoder.
const (
	tagNewSubfileType        = 0x00FE
	tagImageWidth            = 0x0100
	tagImageLength           = 0x0101
	tagBitsPerSample         = 0x0102
	tagCompression           = 0x0103
	tagPhotometric           = 0x0106
	tagStripOffsets          = 0x0111
	tagSamplesPerPixel       = 0x0115
	tagStripByteCounts       = 0x0117
	tagSubIFDs               = 0x014A
	tagJPEGInterchange       = 0x0201
	tagJPEGInterchangeLength = 0x0202
	tagCFARepeatPatternDim   = 0x828D
	tagCFAPattern            = 0x828E
	tagBlackLevel            = 0xC61A
	tagWhiteLevel            = 0xC61D
)

const (
	compressionNone    = 1
	compressionOldJPEG = 6
	compressionJPEG    = 7
	photometricRGB     = 2
	photometricCFA     = 32803
	subfileReduced     = 1
	previewGamma       = 1 / 2.2

	// maxRawDimension bounds CFA width and height read from the file.
	maxRawDimension = 1 << 16
)

var (
	// ErrNotTIFFRaw is returned for RAW containers that are not TIFF based
	// (CR3, RAF, ORF, RW2 variants).
	ErrNotTIFFRaw = errors.New("raw: not a TIFF-based raw file")
	// ErrUnsupportedRaw is returned when no developable sensor data is found.
	ErrUnsupportedRaw = errors.New("raw: unsupported sensor data layout")
)

// tiffRaw is a RawImage over an in-memory TIFF-structured RAW file.
type tiffRaw struct {
	data  []byte
	order binary.ByteOrder
	// dirs holds the main IFD chain followed by every SubIFD.
	dirs []*tiff.Dir
}

// OpenTIFFRaw parses the IFD structure of DNG, NEF, CR2, ARW, PEF, SRW and
// similar files.
func OpenTIFFRaw(data []byte) (RawImage, error) {
	if !bytes.HasPrefix(data, []byte("II*\x00")) && !bytes.HasPrefix(data, []byte("MM\x00*")) {
		return nil, ErrNotTIFFRaw
	}
	t, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tiff structure: %w", err)
	}

	r := &tiffRaw{data: data, order: t.Order}
	r.dirs = append(r.dirs, t.Dirs...)
	for _, d := range t.Dirs {
		r.dirs = append(r.dirs, r.subDirs(d)...)
	}
	return r, nil
}

func (r *tiffRaw) subDirs(d *tiff.Dir) []*tiff.Dir {
	tag := findTag(d, tagSubIFDs)
	if tag == nil {
		return nil
	}
	var dirs []*tiff.Dir
	for i := 0; i < int(tag.Count); i++ {
		off, err := tag.Int64(i)
		if err != nil || off <= 0 || off >= int64(len(r.data)) {
			continue
		}
		rd := bytes.NewReader(r.data)
		if _, err := rd.Seek(off, io.SeekStart); err != nil {
			continue
		}
		sub, _, err := tiff.DecodeDir(rd, r.order)
		if err != nil {
			continue
		}
		dirs = append(dirs, sub)
	}
	return dirs
}

// Close releases the file contents.
func (r *tiffRaw) Close() error {
	r.data = nil
	r.dirs = nil
	return nil
}

// ExtractThumbnail returns the largest decodable embedded JPEG preview, or
// the reduced-resolution RGB IFD0 DNG writers store as a bitmap preview.
func (r *tiffRaw) ExtractThumbnail() (*Thumbnail, error) {
	var best []byte
	bestArea := 0
	for _, d := range r.dirs {
		data := r.jpegPreview(d)
		if data == nil {
			continue
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			continue
		}
		if area := cfg.Width * cfg.Height; area > bestArea {
			best, bestArea = data, area
		}
	}
	if best != nil {
		return &Thumbnail{Format: ThumbJPEG, Data: best}, nil
	}

	if len(r.dirs) > 0 {
		d := r.dirs[0]
		if tagInt(d, tagNewSubfileType, 0) == subfileReduced && tagInt(d, tagPhotometric, 0) == photometricRGB {
			if tagInt(d, tagCompression, compressionNone) != compressionNone {
				return nil, ErrUnsupportedThumbnail
			}
			img, err := xtiff.Decode(bytes.NewReader(r.data))
			if err != nil {
				return nil, fmt.Errorf("decode bitmap preview: %v: %w", err, ErrUnsupportedThumbnail)
			}
			return &Thumbnail{Format: ThumbBitmap, Bitmap: img}, nil
		}
	}
	return nil, ErrNoThumbnail
}

// jpegPreview returns the JPEG stream an IFD points at, if any.
func (r *tiffRaw) jpegPreview(d *tiff.Dir) []byte {
	if off := tagInt(d, tagJPEGInterchange, 0); off > 0 {
		if n := tagInt(d, tagJPEGInterchangeLength, 0); n > 0 {
			return r.jpegAt(off, n)
		}
	}
	switch tagInt(d, tagCompression, 0) {
	case compressionOldJPEG, compressionJPEG:
	default:
		return nil
	}
	if tagInt(d, tagPhotometric, 0) == photometricCFA {
		return nil
	}
	offs, counts := findTag(d, tagStripOffsets), findTag(d, tagStripByteCounts)
	if offs == nil || counts == nil || offs.Count != 1 || counts.Count != 1 {
		return nil
	}
	off, err1 := offs.Int(0)
	n, err2 := counts.Int(0)
	if err1 != nil || err2 != nil {
		return nil
	}
	return r.jpegAt(off, n)
}

func (r *tiffRaw) jpegAt(off, n int) []byte {
	if off < 0 || n < 2 || off+n > len(r.data) {
		return nil
	}
	data := r.data[off : off+n]
	if data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}
	return data
}

// Postprocess develops the sensor data. Uncompressed 2x2 CFA mosaics are
// demosaiced by binning each pattern cell into one RGB pixel; linear RGB
// rasters are decoded as-is. Auto white balance is gray-world.
func (r *tiffRaw) Postprocess(p PostprocessParams) (image.Image, error) {
	if p.OutputBPS != 8 {
		return nil, fmt.Errorf("%d bits per sample output: %w", p.OutputBPS, ErrUnsupportedRaw)
	}
	if p.UseCameraWB {
		return nil, fmt.Errorf("camera white balance: %w", ErrUnsupportedRaw)
	}

	for _, d := range r.dirs {
		if tagInt(d, tagPhotometric, 0) == photometricCFA && tagInt(d, tagNewSubfileType, 0) == 0 {
			plane, err := r.demosaic(d)
			if err != nil {
				return nil, err
			}
			if p.UseAutoWB {
				plane.grayWorld()
			}
			return plane.toNRGBA(previewGamma), nil
		}
	}

	img, err := xtiff.Decode(bytes.NewReader(r.data))
	if err != nil {
		return nil, fmt.Errorf("decode raster: %v: %w", err, ErrUnsupportedRaw)
	}
	plane := planeFromImage(img)
	if p.UseAutoWB {
		plane.grayWorld()
	}
	return plane.toNRGBA(1), nil
}

func (r *tiffRaw) demosaic(d *tiff.Dir) (*rgbPlane, error) {
	width := tagInt(d, tagImageWidth, 0)
	height := tagInt(d, tagImageLength, 0)
	bits := tagInt(d, tagBitsPerSample, 0)
	if width < 2 || height < 2 || width > maxRawDimension || height > maxRawDimension ||
		tagInt(d, tagSamplesPerPixel, 1) != 1 {
		return nil, fmt.Errorf("cfa %dx%d: %w", width, height, ErrUnsupportedRaw)
	}
	if tagInt(d, tagCompression, compressionNone) != compressionNone || (bits != 8 && bits != 16) {
		return nil, fmt.Errorf("cfa compression/bit depth: %w", ErrUnsupportedRaw)
	}
	if dim := findTag(d, tagCFARepeatPatternDim); dim != nil {
		rows, _ := dim.Int(0)
		cols, _ := dim.Int(1)
		if rows != 2 || cols != 2 {
			return nil, fmt.Errorf("cfa pattern %dx%d: %w", rows, cols, ErrUnsupportedRaw)
		}
	}

	pattern := [4]int{0, 1, 1, 2} // RGGB
	if pt := findTag(d, tagCFAPattern); pt != nil && pt.Count == 4 {
		for i := range pattern {
			if v, err := pt.Int(i); err == nil && v >= 0 && v <= 2 {
				pattern[i] = v
			}
		}
	}

	buf, err := r.strips(d)
	if err != nil {
		return nil, err
	}
	bytesPer := bits / 8
	if int64(width) > int64(len(buf))/(int64(height)*int64(bytesPer)) {
		return nil, fmt.Errorf("cfa data truncated (%d bytes): %w", len(buf), ErrUnsupportedRaw)
	}

	black := float64(tagInt(d, tagBlackLevel, 0))
	white := float64(tagInt(d, tagWhiteLevel, 1<<bits-1))
	if white <= black {
		white = float64(int(1)<<bits - 1)
		black = 0
	}

	sample := func(x, y int) float64 {
		i := y*width + x
		var v float64
		if bytesPer == 1 {
			v = float64(buf[i])
		} else {
			v = float64(r.order.Uint16(buf[2*i:]))
		}
		return clamp01((v - black) / (white - black))
	}

	out := newRGBPlane(width/2, height/2)
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			var sum [3]float64
			var n [3]int
			for cell := 0; cell < 4; cell++ {
				c := pattern[cell]
				sum[c] += sample(2*x+cell%2, 2*y+cell/2)
				n[c]++
			}
			px := out.at(x, y)
			for c := 0; c < 3; c++ {
				if n[c] > 0 {
					px[c] = sum[c] / float64(n[c])
				}
			}
		}
	}
	return out, nil
}

func (r *tiffRaw) strips(d *tiff.Dir) ([]byte, error) {
	offs, counts := findTag(d, tagStripOffsets), findTag(d, tagStripByteCounts)
	if offs == nil || counts == nil || offs.Count != counts.Count {
		return nil, fmt.Errorf("cfa strips: %w", ErrUnsupportedRaw)
	}
	var buf []byte
	for i := 0; i < int(offs.Count); i++ {
		off, err1 := offs.Int64(i)
		n, err2 := counts.Int64(i)
		if err1 != nil || err2 != nil || off < 0 || n < 0 || off+n > int64(len(r.data)) {
			return nil, fmt.Errorf("cfa strip %d out of bounds: %w", i, ErrUnsupportedRaw)
		}
		buf = append(buf, r.data[off:off+n]...)
	}
	return buf, nil
}

func findTag(d *tiff.Dir, id uint16) *tiff.Tag {
	for _, t := range d.Tags {
		if t.Id == id {
			return t
		}
	}
	return nil
}

func tagInt(d *tiff.Dir, id uint16, def int) int {
	t := findTag(d, id)
	if t == nil {
		return def
	}
	v, err := t.Int(0)
	if err != nil {
		return def
	}
	return v
}

// rgbPlane is a linear float RGB buffer, three values per pixel in 0..1.
type rgbPlane struct {
	w, h int
	pix  []float64
}

func newRGBPlane(w, h int) *rgbPlane {
	return &rgbPlane{w: w, h: h, pix: make([]float64, 3*w*h)}
}

func (p *rgbPlane) at(x, y int) []float64 {
	i := 3 * (y*p.w + x)
	return p.pix[i : i+3 : i+3]
}

func planeFromImage(img image.Image) *rgbPlane {
	b := img.Bounds()
	p := newRGBPlane(b.Dx(), b.Dy())
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			px := p.at(x, y)
			px[0] = float64(c.R) / 0xffff
			px[1] = float64(c.G) / 0xffff
			px[2] = float64(c.B) / 0xffff
		}
	}
	return p
}

// grayWorld scales red and blue so every channel averages to the green mean.
func (p *rgbPlane) grayWorld() {
	var mean [3]float64
	for i := 0; i < len(p.pix); i += 3 {
		mean[0] += p.pix[i]
		mean[1] += p.pix[i+1]
		mean[2] += p.pix[i+2]
	}
	if mean[0] == 0 || mean[1] == 0 || mean[2] == 0 {
		return
	}
	gain := [3]float64{mean[1] / mean[0], 1, mean[1] / mean[2]}
	for i := range p.pix {
		p.pix[i] = clamp01(p.pix[i] * gain[i%3])
	}
}

func (p *rgbPlane) toNRGBA(gamma float64) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, p.w, p.h))
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			px := p.at(x, y)
			o := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := px[c]
				if gamma != 1 {
					v = math.Pow(v, gamma)
				}
				out.Pix[o+c] = uint8(math.Round(clamp01(v) * 255))
			}
			out.Pix[o+3] = 0xff
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
