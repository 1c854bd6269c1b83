// Package storage defines the capabilities mediakit expects from storage
// adapters and the helpers built on top of them.
package storage

import (
	"context"
	"io"

	"github.com/fruitsalade/mediakit/internal/listing"
)

// ExistenceChecker is the optional capability used by CheckDestination.
// Paths are relative to root.
type ExistenceChecker interface {
	Exists(ctx context.Context, root, relPath string) (bool, error)
}

// Lister lists the entries of a directory.
type Lister interface {
	List(ctx context.Context, root, relPath string) ([]listing.Entry, error)
}

// Opener opens a file for streaming. The returned size is the full file size.
type Opener interface {
	Open(ctx context.Context, root, relPath string) (io.ReadSeekCloser, int64, error)
}

// Adapter is a storage backend. Every adapter reports its type; the other
// capabilities are discovered with type assertions.
type Adapter interface {
	// Type returns the backend type identifier ("local", "s3", "postgres").
	Type() string

	// Close releases any resources held by the adapter.
	Close() error
}
