package httprange

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Header names produced by BuildStreamHeaders.
const (
	HeaderAcceptRanges       = "Accept-Ranges"
	HeaderContentType        = "Content-Type"
	HeaderContentRange       = "Content-Range"
	HeaderContentLength      = "Content-Length"
	HeaderContentDisposition = "Content-Disposition"
)

// StreamHeaders maps response header names to values.
type StreamHeaders map[string]string

// BuildStreamHeaders returns the headers for streaming bytes start..end of a
// size-byte resource. A non-empty filename adds an inline Content-Disposition.
func BuildStreamHeaders(contentType string, size, start, end int64, partial bool, filename string) StreamHeaders {
	h := StreamHeaders{
		HeaderAcceptRanges: "bytes",
		HeaderContentType:  contentType,
	}

	if partial {
		h[HeaderContentRange] = fmt.Sprintf("bytes %d-%d/%d", start, end, size)
		h[HeaderContentLength] = strconv.FormatInt(end-start+1, 10)
	} else {
		h[HeaderContentLength] = strconv.FormatInt(size, 10)
	}

	if filename != "" {
		h[HeaderContentDisposition] = fmt.Sprintf(`inline; filename="%s"`, QuoteFilename(filename))
	}
	return h
}

// HeadersFor is BuildStreamHeaders for a parsed Range.
func HeadersFor(contentType string, size int64, r Range, filename string) StreamHeaders {
	return BuildStreamHeaders(contentType, size, r.Start, r.End, r.Partial, filename)
}

// Apply copies the headers onto dst, replacing existing values.
func (h StreamHeaders) Apply(dst http.Header) {
	for k, v := range h {
		dst.Set(k, v)
	}
}

// UnsatisfiableHeaders returns the headers for a 416 response.
func UnsatisfiableHeaders(size int64) StreamHeaders {
	return StreamHeaders{
		HeaderAcceptRanges: "bytes",
		HeaderContentRange: fmt.Sprintf("bytes */%d", size),
	}
}

// QuoteFilename percent-encodes every byte of name except ASCII letters,
// digits, "_.-~" and "/".
func QuoteFilename(name string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '_', '.', '-', '~', '/':
		return true
	}
	return false
}
