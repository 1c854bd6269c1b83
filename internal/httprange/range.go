// Package httprange resolves HTTP Range requests against a known resource
// size and builds the matching streaming response headers.
package httprange

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fruitsalade/mediakit/internal/apierr"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

const rangePrefix = "bytes="

// Range is a resolved, end-inclusive byte span.
type Range struct {
	Start   int64
	End     int64
	Status  int
	Partial bool
}

// Length returns the number of bytes in the span.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// Full returns the whole-resource response for size bytes.
func Full(size int64) Range {
	return Range{Start: 0, End: size - 1, Status: http.StatusOK}
}

// ParseRange resolves a Range header value against size.
//
// An empty header or one without the "bytes=" prefix selects the whole
// resource with status 200. Otherwise a single "start-end" spec is read:
// a missing end means the last byte, "-N" means the last N bytes. Ends past
// the resource are clamped. Malformed specs fail with a 400 apierr.Error and
// starts at or past the end with a 416 one.
func ParseRange(header string, size int64) (Range, error) {
	if header == "" || !strings.HasPrefix(header, rangePrefix) {
		metrics.RecordRange(metrics.RangeFull)
		return Full(size), nil
	}

	r, err := parseSpec(strings.TrimPrefix(header, rangePrefix), size)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeRangeNotSatisfiable) {
			metrics.RecordRange(metrics.RangeUnsatisfiable)
		} else {
			metrics.RecordRange(metrics.RangeBadRequest)
		}
		return Range{}, err
	}
	metrics.RecordRange(metrics.RangePartial)
	return r, nil
}

func parseSpec(spec string, size int64) (Range, error) {
	if strings.Contains(spec, ",") {
		return Range{}, apierr.Newf(apierr.CodeBadRequest, "multiple ranges not supported: %q", spec)
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return Range{}, apierr.Newf(apierr.CodeBadRequest, "invalid range %q", spec)
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		if endStr == "" {
			return Range{}, apierr.Newf(apierr.CodeBadRequest, "invalid range %q", spec)
		}
		return parseSuffix(endStr, size)
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return Range{}, err
	}
	end := size - 1
	if endStr != "" {
		if end, err = parseOffset(endStr); err != nil {
			return Range{}, err
		}
	}

	if start >= size {
		return Range{}, apierr.NotSatisfiable(size)
	}
	if end >= size {
		end = size - 1
	}
	if end < start {
		return Range{}, apierr.Newf(apierr.CodeBadRequest, "range end %d before start %d", end, start)
	}
	return Range{Start: start, End: end, Status: http.StatusPartialContent, Partial: true}, nil
}

// parseSuffix handles "-N": the final N bytes of the resource.
func parseSuffix(s string, size int64) (Range, error) {
	n, err := parseOffset(s)
	if err != nil {
		return Range{}, err
	}
	if n == 0 || size <= 0 {
		return Range{}, apierr.NotSatisfiable(size)
	}
	start := size - n
	if start < 0 {
		start = 0
	}
	return Range{Start: start, End: size - 1, Status: http.StatusPartialContent, Partial: true}, nil
}

// parseOffset accepts only unsigned decimal digits.
func parseOffset(s string) (int64, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, apierr.Newf(apierr.CodeBadRequest, "invalid range offset %q", s)
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apierr.Newf(apierr.CodeBadRequest, "invalid range offset %q", s)
	}
	return v, nil
}

// ParseContentRange reads a "bytes start-end/size" Content-Range value.
func ParseContentRange(v string) (start, end, size int64, err error) {
	if _, err = fmt.Sscanf(v, "bytes %d-%d/%d", &start, &end, &size); err != nil {
		return 0, 0, 0, fmt.Errorf("parse content-range %q: %w", v, err)
	}
	if start < 0 || end < start || end >= size {
		return 0, 0, 0, fmt.Errorf("content-range %q out of bounds", v)
	}
	return start, end, size, nil
}
