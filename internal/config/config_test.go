package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("DEFAULT_PAGE_SIZE", "")
	t.Setenv("EXIF_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageBackend != "local" {
		t.Errorf("StorageBackend = %q, want local", cfg.StorageBackend)
	}
	if cfg.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize = %d, want 50", cfg.DefaultPageSize)
	}
	if cfg.ExifTimeout != 10*time.Second {
		t.Errorf("ExifTimeout = %s, want 10s", cfg.ExifTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEFAULT_PAGE_SIZE", "25")
	t.Setenv("THUMB_MAX_SIZE", "256")
	t.Setenv("EXIF_TIMEOUT", "2s")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultPageSize != 25 || cfg.ThumbMaxSize != 256 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.ExifTimeout != 2*time.Second {
		t.Errorf("ExifTimeout = %s, want 2s", cfg.ExifTimeout)
	}
	if !cfg.S3UseSSL {
		t.Error("S3UseSSL should be true")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "STORAGE_BACKEND", "ftp"},
		{"postgres without url", "STORAGE_BACKEND", "postgres"},
		{"zero page size", "DEFAULT_PAGE_SIZE", "0"},
		{"quality out of range", "THUMB_QUALITY", "101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_PAGE_SIZE", "lots")
	t.Setenv("EXIF_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxPageSize != 1000 {
		t.Errorf("MaxPageSize = %d, want fallback 1000", cfg.MaxPageSize)
	}
	if cfg.ExifTimeout != 10*time.Second {
		t.Errorf("ExifTimeout = %s, want fallback 10s", cfg.ExifTimeout)
	}
}
