package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fruitsalade/mediakit/internal/config"
	"github.com/fruitsalade/mediakit/internal/metadata/postgres"
	"github.com/fruitsalade/mediakit/internal/storage/local"
	s3adapter "github.com/fruitsalade/mediakit/internal/storage/s3"
)

// postgresConfig is the JSON config of the postgres adapter.
type postgresConfig struct {
	DatabaseURL string `json:"database_url"`
}

// NewAdapter creates an Adapter from a backend type string and JSON config.
func NewAdapter(ctx context.Context, backendType string, raw json.RawMessage) (Adapter, error) {
	switch backendType {
	case "s3":
		return s3adapter.NewFromJSON(ctx, raw)
	case "local":
		return local.NewFromJSON(raw)
	case "postgres":
		var cfg postgresConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		return postgres.New(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", backendType)
	}
}

// FromConfig creates the adapter selected by STORAGE_BACKEND.
func FromConfig(ctx context.Context, cfg *config.Config) (Adapter, error) {
	switch cfg.StorageBackend {
	case "s3":
		return s3adapter.New(ctx, s3adapter.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	case "local":
		return local.New(local.Config{RootPath: cfg.LocalStoragePath})
	case "postgres":
		return postgres.New(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.StorageBackend)
	}
}
