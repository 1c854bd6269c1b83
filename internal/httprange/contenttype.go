package httprange

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// rawTypes covers camera RAW extensions missing from the system MIME table.
var rawTypes = map[string]string{
	".dng": "image/x-adobe-dng",
	".cr2": "image/x-canon-cr2",
	".cr3": "image/x-canon-cr3",
	".nef": "image/x-nikon-nef",
	".arw": "image/x-sony-arw",
	".orf": "image/x-olympus-orf",
	".rw2": "image/x-panasonic-rw2",
	".pef": "image/x-pentax-pef",
	".srw": "image/x-samsung-srw",
	".raf": "image/x-fuji-raf",
}

// ContentType picks a MIME type for name. RAW extensions map directly since
// their content sniffs as plain TIFF. Otherwise the content sniffed from head
// wins when it is recognized, then the extension decides.
func ContentType(name string, head []byte) string {
	if ct, ok := rawTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	if len(head) > 0 {
		if m := mimetype.Detect(head); !m.Is(defaultContentType) {
			return m.String()
		}
	}
	return byExtension(name)
}

// ContentTypeReader sniffs up to the mimetype read limit from r.
func ContentTypeReader(name string, r io.Reader) string {
	m, err := mimetype.DetectReader(r)
	if err == nil && !m.Is(defaultContentType) {
		return m.String()
	}
	return byExtension(name)
}

func byExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := rawTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}
