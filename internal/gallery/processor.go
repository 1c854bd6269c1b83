package gallery

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fruitsalade/mediakit/internal/logging"
)

// ErrProcessorStopped is returned by Submit once Stop has been called.
var ErrProcessorStopped = errors.New("thumbnail processor stopped")

// imageExtensions are file extensions the processor thumbnails.
var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif",
	// RAW formats
	".cr2", ".cr3", ".nef", ".arw", ".dng", ".orf", ".rw2", ".pef", ".srw", ".raf",
}

// IsImageFile checks if a file path has an image extension.
func IsImageFile(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ThumbName returns the name a thumbnail of name is stored under.
func ThumbName(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	return base + "_thumb.jpg"
}

// ReadFunc loads the contents of a file.
type ReadFunc func(ctx context.Context, name string) ([]byte, error)

// WriteFunc stores a generated thumbnail.
type WriteFunc func(ctx context.Context, name string, thumb []byte) error

// Result is the outcome of one processed file.
type Result struct {
	Name        string
	Width       int
	Height      int
	Orientation int
	Err         error
}

// Processor generates thumbnails on a fixed pool of workers.
type Processor struct {
	read    ReadFunc
	write   WriteFunc
	opts    ThumbOptions
	queue   chan string
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	workers int
	started time.Time

	// closeMu guards queue sends against the close in Stop.
	closeMu sync.RWMutex
	stopped bool

	mu      sync.Mutex
	results []Result
}

// NewProcessor creates a processor. workers <= 0 uses 2.
func NewProcessor(read ReadFunc, write WriteFunc, opts ThumbOptions, workers int) *Processor {
	if workers <= 0 {
		workers = 2
	}
	return &Processor{
		read:    read,
		write:   write,
		opts:    opts,
		queue:   make(chan string, 1000),
		workers: workers,
	}
}

// Start launches the worker goroutines.
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.started = time.Now()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	logging.Info("thumbnail processor started", logging.Int("workers", p.workers))
}

// Enqueue adds a file to the queue. It reports false when the queue is full
// or the processor is stopped and the file was dropped.
func (p *Processor) Enqueue(name string) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.queue <- name:
		return true
	default:
		logging.Warn("thumbnail queue full, dropping", logging.String("path", name))
		return false
	}
}

// Submit adds a file to the queue, waiting for room.
func (p *Processor) Submit(ctx context.Context, name string) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.stopped {
		return ErrProcessorStopped
	}
	select {
	case p.queue <- name:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains the queue, waits for the workers and returns the results in
// completion order. Later calls return the same results.
func (p *Processor) Stop() []Result {
	p.closeMu.Lock()
	if p.stopped {
		p.closeMu.Unlock()
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.results
	}
	p.stopped = true
	close(p.queue)
	p.closeMu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	logging.Info("thumbnail processor stopped",
		logging.Int("processed", len(p.results)),
		logging.Duration("elapsed", time.Since(p.started)))
	return p.results
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-p.queue:
			if !ok {
				return
			}
			res := p.process(ctx, name)
			p.mu.Lock()
			p.results = append(p.results, res)
			p.mu.Unlock()
		}
	}
}

func (p *Processor) process(ctx context.Context, name string) Result {
	res := Result{Name: name}

	content, err := p.read(ctx, name)
	if err != nil {
		res.Err = fmt.Errorf("read: %w", err)
		logging.Warn("thumbnail: failed to read file", logging.String("path", name), logging.Err(err))
		return res
	}

	img, err := Preview(name, content)
	if err != nil {
		res.Err = err
		logging.Warn("thumbnail: failed to decode image", logging.String("path", name), logging.Err(err))
		return res
	}

	res.Orientation = ExtractExif(bytes.NewReader(content)).Orientation
	thumb, w, h, err := GenerateThumbnail(img, res.Orientation, p.opts)
	if err != nil {
		res.Err = err
		logging.Warn("thumbnail generation failed", logging.String("path", name), logging.Err(err))
		return res
	}
	res.Width, res.Height = w, h

	if err := p.write(ctx, name, thumb); err != nil {
		res.Err = fmt.Errorf("write: %w", err)
		logging.Warn("thumbnail: failed to store", logging.String("path", name), logging.Err(err))
		return res
	}

	logging.Debug("thumbnail: processed image",
		logging.String("path", name),
		logging.Int("width", w),
		logging.Int("height", h))
	return res
}
