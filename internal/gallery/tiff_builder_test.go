package gallery

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"sort"
	"testing"
)

const (
	typeByte  = 1
	typeASCII = 2
	typeShort = 3
	typeLong  = 4
)

// tiffEntry describes one IFD entry. A non-nil blob is stored out of line
// and the entry holds its offset.
type tiffEntry struct {
	id   uint16
	typ  uint16
	vals []uint32
	text string
	blob []byte
}

// buildTIFF lays out a little-endian TIFF with the given IFD chain.
func buildTIFF(ifds ...[]tiffEntry) []byte {
	le := binary.LittleEndian

	starts := make([]int, len(ifds))
	pos := 8
	for i, ifd := range ifds {
		starts[i] = pos
		pos += 2 + 12*len(ifd) + 4
	}
	tailBase := pos
	out := make([]byte, pos)
	var tail []byte
	copy(out, "II*\x00")
	le.PutUint32(out[4:], 8)

	for i, ifd := range ifds {
		sort.Slice(ifd, func(a, b int) bool { return ifd[a].id < ifd[b].id })
		p := starts[i]
		le.PutUint16(out[p:], uint16(len(ifd)))
		p += 2
		for _, e := range ifd {
			typ := e.typ
			var val []byte
			var count uint32
			switch {
			case e.blob != nil:
				typ, count = typeLong, 1
				val = le.AppendUint32(nil, uint32(tailBase+len(tail)))
				tail = append(tail, e.blob...)
				if len(tail)%2 == 1 {
					tail = append(tail, 0)
				}
			case typ == typeASCII:
				val = append([]byte(e.text), 0)
				count = uint32(len(val))
			default:
				count = uint32(len(e.vals))
				for _, v := range e.vals {
					switch typ {
					case typeByte:
						val = append(val, byte(v))
					case typeShort:
						val = le.AppendUint16(val, uint16(v))
					default:
						val = le.AppendUint32(val, v)
					}
				}
			}

			le.PutUint16(out[p:], e.id)
			le.PutUint16(out[p+2:], typ)
			le.PutUint32(out[p+4:], count)
			if len(val) <= 4 {
				copy(out[p+8:p+12], val)
			} else {
				le.PutUint32(out[p+8:], uint32(tailBase+len(tail)))
				tail = append(tail, val...)
				if len(tail)%2 == 1 {
					tail = append(tail, 0)
				}
			}
			p += 12
		}
		next := 0
		if i+1 < len(ifds) {
			next = starts[i+1]
		}
		le.PutUint32(out[p:], uint32(next))
	}
	return append(out, tail...)
}

// cfaIFD returns a 4x4 16-bit RGGB mosaic IFD with uniform cell values.
func cfaIFD(r, g, b uint16) []tiffEntry {
	le := binary.LittleEndian
	var pix []byte
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := g
			switch {
			case y%2 == 0 && x%2 == 0:
				v = r
			case y%2 == 1 && x%2 == 1:
				v = b
			}
			pix = le.AppendUint16(pix, v)
		}
	}
	return []tiffEntry{
		{id: tagNewSubfileType, typ: typeLong, vals: []uint32{0}},
		{id: tagImageWidth, typ: typeLong, vals: []uint32{4}},
		{id: tagImageLength, typ: typeLong, vals: []uint32{4}},
		{id: tagBitsPerSample, typ: typeShort, vals: []uint32{16}},
		{id: tagCompression, typ: typeShort, vals: []uint32{compressionNone}},
		{id: tagPhotometric, typ: typeShort, vals: []uint32{photometricCFA}},
		{id: tagStripOffsets, blob: pix},
		{id: tagSamplesPerPixel, typ: typeShort, vals: []uint32{1}},
		{id: tagStripByteCounts, typ: typeLong, vals: []uint32{uint32(len(pix))}},
		{id: tagCFARepeatPatternDim, typ: typeShort, vals: []uint32{2, 2}},
		{id: tagCFAPattern, typ: typeByte, vals: []uint32{0, 1, 1, 2}},
	}
}

// rgbPreviewIFD returns a reduced-resolution 2x2 RGB IFD.
func rgbPreviewIFD() []tiffEntry {
	pix := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	}
	return []tiffEntry{
		{id: tagNewSubfileType, typ: typeLong, vals: []uint32{subfileReduced}},
		{id: tagImageWidth, typ: typeLong, vals: []uint32{2}},
		{id: tagImageLength, typ: typeLong, vals: []uint32{2}},
		{id: tagBitsPerSample, typ: typeShort, vals: []uint32{8, 8, 8}},
		{id: tagCompression, typ: typeShort, vals: []uint32{compressionNone}},
		{id: tagPhotometric, typ: typeShort, vals: []uint32{photometricRGB}},
		{id: tagStripOffsets, blob: pix},
		{id: tagSamplesPerPixel, typ: typeShort, vals: []uint32{3}},
		{id: 0x0116, typ: typeLong, vals: []uint32{2}}, // RowsPerStrip
		{id: tagStripByteCounts, typ: typeLong, vals: []uint32{uint32(len(pix))}},
	}
}

// jpegIFD returns an IFD pointing at an embedded JPEG of the given size.
func jpegIFD(t *testing.T, w, h int) []tiffEntry {
	data := encodeJPEG(t, w, h)
	return []tiffEntry{
		{id: tagJPEGInterchange, blob: data},
		{id: tagJPEGInterchangeLength, typ: typeLong, vals: []uint32{uint32(len(data))}},
	}
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 10), uint8(y * 10), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
