// Package postgres provides a storage adapter backed by the PostgreSQL
// files metadata table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"time"

	_ "github.com/lib/pq"

	"github.com/fruitsalade/mediakit/internal/listing"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// Schema is the subset of the files table the adapter reads.
const Schema = `CREATE TABLE IF NOT EXISTS files (
	path        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	parent_path TEXT NOT NULL,
	size        BIGINT NOT NULL DEFAULT 0,
	mod_time    TIMESTAMPTZ NOT NULL DEFAULT now(),
	is_dir      BOOLEAN NOT NULL DEFAULT false,
	deleted_at  TIMESTAMPTZ
)`

// Store answers existence and listing queries from file metadata.
type Store struct {
	db *sql.DB
}

// New opens and pings a PostgreSQL connection.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an open connection.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the files table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	return nil
}

// filePath maps root and relPath to the absolute path stored in the table.
func filePath(root, relPath string) string {
	return path.Join("/", root, relPath)
}

// Exists reports whether a row for root/relPath exists.
func (s *Store) Exists(ctx context.Context, root, relPath string) (bool, error) {
	start := time.Now()
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM files WHERE path = $1 AND deleted_at IS NULL)`,
		filePath(root, relPath)).Scan(&exists)
	if err != nil {
		metrics.RecordStorageOperation("postgres", "exists", time.Since(start), false)
		return false, fmt.Errorf("query path exists: %w", err)
	}
	metrics.RecordStorageOperation("postgres", "exists", time.Since(start), true)
	return exists, nil
}

// List returns the children of root/relPath.
func (s *Store) List(ctx context.Context, root, relPath string) ([]listing.Entry, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, size, mod_time, is_dir
		 FROM files WHERE parent_path = $1 AND deleted_at IS NULL ORDER BY name`,
		filePath(root, relPath))
	if err != nil {
		metrics.RecordStorageOperation("postgres", "list", time.Since(start), false)
		return nil, fmt.Errorf("list dir: %w", err)
	}
	defer rows.Close()

	var entries []listing.Entry
	for rows.Next() {
		var e listing.Entry
		if err := rows.Scan(&e.Name, &e.Size, &e.ModTime, &e.IsDir); err != nil {
			metrics.RecordStorageOperation("postgres", "list", time.Since(start), false)
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStorageOperation("postgres", "list", time.Since(start), false)
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}

	metrics.RecordStorageOperation("postgres", "list", time.Since(start), true)
	return entries, nil
}

// Type returns "postgres".
func (s *Store) Type() string { return "postgres" }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
