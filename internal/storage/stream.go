package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/fruitsalade/mediakit/internal/httprange"
)

// Stream is an opened byte range ready to be written to a response.
type Stream struct {
	Status  int
	Range   httprange.Range
	Headers httprange.StreamHeaders
	Body    io.ReadCloser
}

type limitedReadCloser struct {
	io.Reader
	io.Closer
}

// OpenStream opens relPath, resolves rangeHeader against its size and
// positions the body at the start of the range. Range errors are returned
// as apierr.Error values; the file is closed in that case.
func OpenStream(ctx context.Context, o Opener, root, relPath, rangeHeader string) (*Stream, error) {
	f, size, err := o.Open(ctx, root, relPath)
	if err != nil {
		return nil, err
	}

	r, err := httprange.ParseRange(rangeHeader, size)
	if err != nil {
		f.Close()
		return nil, err
	}

	name := path.Base(relPath)
	contentType := httprange.ContentTypeReader(name, f)

	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek %s: %w", relPath, err)
	}

	return &Stream{
		Status:  r.Status,
		Range:   r,
		Headers: httprange.HeadersFor(contentType, size, r, name),
		Body:    &limitedReadCloser{Reader: io.LimitReader(f, r.Length()), Closer: f},
	}, nil
}
