// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds mediakit configuration.
type Config struct {
	// Metrics exposition (empty disables)
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string

	// Storage backend ("local", "s3" or "postgres", default: "local")
	StorageBackend   string
	LocalStoragePath string

	// S3 storage
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	// Metadata database, required for the postgres backend
	DatabaseURL string

	// Listing
	DefaultPageSize int
	MaxPageSize     int

	// Thumbnails
	ThumbMaxSize int
	ThumbQuality int

	// EXIF extraction deadline per file
	ExifTimeout time.Duration
}

// Load reads an optional .env file, then configuration from environment
// variables with defaults.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := &Config{
		MetricsAddr:      envOr("METRICS_ADDR", ""),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		LogOutput:        envOr("LOG_OUTPUT", "stderr"),
		StorageBackend:   envOr("STORAGE_BACKEND", "local"),
		LocalStoragePath: envOr("LOCAL_STORAGE_PATH", "."),
		S3Endpoint:       envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:         envOr("S3_BUCKET", "fruitsalade"),
		S3AccessKey:      envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:         envOr("S3_REGION", "us-east-1"),
		S3UseSSL:         envBool("S3_USE_SSL", false),
		DatabaseURL:      envOr("DATABASE_URL", ""),
		DefaultPageSize:  envInt("DEFAULT_PAGE_SIZE", 50),
		MaxPageSize:      envInt("MAX_PAGE_SIZE", 1000),
		ThumbMaxSize:     envInt("THUMB_MAX_SIZE", 400),
		ThumbQuality:     envInt("THUMB_QUALITY", 80),
		ExifTimeout:      envDuration("EXIF_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and backend-specific requirements.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "local", "s3":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("MAX_PAGE_SIZE (%d) must be >= DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.ThumbMaxSize <= 0 {
		return fmt.Errorf("THUMB_MAX_SIZE must be positive, got %d", c.ThumbMaxSize)
	}
	if c.ThumbQuality < 1 || c.ThumbQuality > 100 {
		return fmt.Errorf("THUMB_QUALITY must be within 1..100, got %d", c.ThumbQuality)
	}
	if c.ExifTimeout <= 0 {
		return fmt.Errorf("EXIF_TIMEOUT must be positive, got %s", c.ExifTimeout)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
