// Package local provides a local filesystem storage adapter.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fruitsalade/mediakit/internal/listing"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// ErrOutsideRoot is returned for paths that resolve outside the adapter root.
var ErrOutsideRoot = errors.New("path escapes storage root")

// Config holds local filesystem adapter settings.
type Config struct {
	RootPath   string `json:"root_path"`
	CreateDirs bool   `json:"create_dirs"`
}

// Adapter serves files below a root directory.
type Adapter struct {
	rootPath string
}

// New creates a local filesystem adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root_path is required")
	}

	info, err := os.Stat(cfg.RootPath)
	if err != nil {
		if os.IsNotExist(err) && cfg.CreateDirs {
			if mkErr := os.MkdirAll(cfg.RootPath, 0755); mkErr != nil {
				return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, mkErr)
			}
		} else {
			return nil, fmt.Errorf("stat root path %s: %w", cfg.RootPath, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}

	abs, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root path %s: %w", cfg.RootPath, err)
	}
	return &Adapter{rootPath: abs}, nil
}

// NewFromJSON creates an Adapter from raw JSON config.
func NewFromJSON(raw json.RawMessage) (*Adapter, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse local config: %w", err)
	}
	return New(cfg)
}

// fullPath joins root and relPath below the adapter root. Both are
// slash-separated; a result that climbs above the root is rejected.
func (a *Adapter) fullPath(root, relPath string) (string, error) {
	rel := path.Join(strings.TrimLeft(root, "/"), strings.TrimLeft(relPath, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s: %w", path.Join(root, relPath), ErrOutsideRoot)
	}
	return filepath.Join(a.rootPath, filepath.FromSlash(rel)), nil
}

// Exists reports whether relPath exists below root.
func (a *Adapter) Exists(_ context.Context, root, relPath string) (bool, error) {
	start := time.Now()
	p, err := a.fullPath(root, relPath)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			metrics.RecordStorageOperation("local", "exists", time.Since(start), true)
			return false, nil
		}
		metrics.RecordStorageOperation("local", "exists", time.Since(start), false)
		return false, fmt.Errorf("stat %s: %w", relPath, err)
	}
	metrics.RecordStorageOperation("local", "exists", time.Since(start), true)
	return true, nil
}

// List returns the entries of the directory relPath below root.
func (a *Adapter) List(_ context.Context, root, relPath string) ([]listing.Entry, error) {
	start := time.Now()
	p, err := a.fullPath(root, relPath)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(p)
	if err != nil {
		metrics.RecordStorageOperation("local", "list", time.Since(start), false)
		return nil, fmt.Errorf("read dir %s: %w", relPath, err)
	}

	entries := make([]listing.Entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		e := listing.Entry{
			Name:    d.Name(),
			IsDir:   d.IsDir(),
			ModTime: info.ModTime(),
		}
		if !e.IsDir {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}

	metrics.RecordStorageOperation("local", "list", time.Since(start), true)
	return entries, nil
}

// Open opens the regular file relPath below root and returns its size.
func (a *Adapter) Open(_ context.Context, root, relPath string) (io.ReadSeekCloser, int64, error) {
	start := time.Now()
	p, err := a.fullPath(root, relPath)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(p)
	if err != nil {
		metrics.RecordStorageOperation("local", "open", time.Since(start), false)
		return nil, 0, fmt.Errorf("open %s: %w", relPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		metrics.RecordStorageOperation("local", "open", time.Since(start), false)
		return nil, 0, fmt.Errorf("stat %s: %w", relPath, err)
	}
	if info.IsDir() {
		f.Close()
		metrics.RecordStorageOperation("local", "open", time.Since(start), false)
		return nil, 0, fmt.Errorf("open %s: is a directory", relPath)
	}

	metrics.RecordStorageOperation("local", "open", time.Since(start), true)
	return f, info.Size(), nil
}

// LocalPath returns the filesystem path for relPath below root. EXIF
// extraction reads files by path.
func (a *Adapter) LocalPath(root, relPath string) (string, error) {
	return a.fullPath(root, relPath)
}

// Type returns "local".
func (a *Adapter) Type() string { return "local" }

// Close is a no-op for local adapters.
func (a *Adapter) Close() error { return nil }
