package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fruitsalade/mediakit/internal/logging"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// GetObject reads length bytes of key starting at offset. A length of zero
// reads to the end of the object.
func (a *Adapter) GetObject(ctx context.Context, key string, offset, length int64) (io.ReadCloser, int64, error) {
	start := time.Now()
	input := &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}
	if offset > 0 || length > 0 {
		var rangeStr string
		if length > 0 {
			rangeStr = fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
		} else {
			rangeStr = fmt.Sprintf("bytes=%d-", offset)
		}
		input.Range = aws.String(rangeStr)
	}

	result, err := a.client.GetObject(ctx, input)
	if err != nil {
		metrics.RecordStorageOperation("s3", "get_object", time.Since(start), false)
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("get object %s: %w", key, fs.ErrNotExist)
		}
		return nil, 0, fmt.Errorf("get object %s: %w", key, err)
	}
	metrics.RecordStorageOperation("s3", "get_object", time.Since(start), true)
	return result.Body, aws.ToInt64(result.ContentLength), nil
}

// Open returns a seekable reader over one object. The size comes from
// HeadObject; bytes are fetched with ranged GetObject calls starting at the
// current offset, so seeking past a prefix never downloads it.
func (a *Adapter) Open(ctx context.Context, root, relPath string) (io.ReadSeekCloser, int64, error) {
	key := objectKey(root, relPath)
	if key == "" {
		return nil, 0, fmt.Errorf("open %s: is a directory", relPath)
	}

	start := time.Now()
	head, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.RecordStorageOperation("s3", "head_object", time.Since(start), false)
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("open %s: %w", relPath, fs.ErrNotExist)
		}
		return nil, 0, fmt.Errorf("head object %s: %w", key, err)
	}
	metrics.RecordStorageOperation("s3", "head_object", time.Since(start), true)

	size := aws.ToInt64(head.ContentLength)
	logging.Debug("s3 object opened",
		logging.String("key", key),
		logging.Int64("size", size))
	return &objectReader{ctx: ctx, adapter: a, key: key, size: size}, size, nil
}

// objectReader implements io.ReadSeekCloser over ranged GetObject calls.
// The open body is dropped whenever the offset moves.
type objectReader struct {
	ctx     context.Context
	adapter *Adapter
	key     string
	size    int64
	off     int64
	body    io.ReadCloser
	closed  bool
}

func (r *objectReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errors.New("s3: read on closed object")
	}
	if r.off >= r.size {
		return 0, io.EOF
	}
	if r.body == nil {
		body, _, err := r.adapter.GetObject(r.ctx, r.key, r.off, r.size-r.off)
		if err != nil {
			return 0, err
		}
		r.body = body
	}

	n, err := r.body.Read(p)
	r.off += int64(n)
	if err == io.EOF && r.off < r.size {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (r *objectReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("s3: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("s3: negative position")
	}
	if abs != r.off {
		r.dropBody()
		r.off = abs
	}
	return abs, nil
}

func (r *objectReader) Close() error {
	r.closed = true
	return r.dropBody()
}

func (r *objectReader) dropBody() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
