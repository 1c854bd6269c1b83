package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "photos", "2024"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "photos", "a.jpg"), []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := New(Config{RootPath: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, dir
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty root_path")
	}
	if _, err := New(Config{RootPath: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing root without create_dirs")
	}
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "created")
	if _, err := NewFromJSON([]byte(`{"root_path":"` + root + `","create_dirs":true}`)); err != nil {
		t.Fatalf("NewFromJSON: %v", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestExists(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	tests := []struct {
		root, rel string
		want      bool
	}{
		{"photos", "a.jpg", true},
		{"/photos", "/a.jpg", true},
		{"photos", "2024", true},
		{"photos", "b.jpg", false},
		{"", "photos/a.jpg", true},
	}
	for _, tt := range tests {
		got, err := a.Exists(ctx, tt.root, tt.rel)
		if err != nil {
			t.Fatalf("Exists(%q, %q): %v", tt.root, tt.rel, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%q, %q) = %v, want %v", tt.root, tt.rel, got, tt.want)
		}
	}
}

func TestTraversalRejected(t *testing.T) {
	a, _ := newTestAdapter(t)

	_, err := a.Exists(context.Background(), "photos", "../../etc/passwd")
	if !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("err = %v, want ErrOutsideRoot", err)
	}
	if _, err := a.List(context.Background(), "..", ""); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("List err = %v, want ErrOutsideRoot", err)
	}
}

func TestList(t *testing.T) {
	a, _ := newTestAdapter(t)

	entries, err := a.List(context.Background(), "photos", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	byName := map[string]bool{}
	for _, e := range entries {
		byName[e.Name] = e.IsDir
		if e.Name == "a.jpg" && e.Size != 10 {
			t.Errorf("a.jpg size = %d, want 10", e.Size)
		}
		if e.IsDir && e.Size != 0 {
			t.Errorf("directory %s has size %d", e.Name, e.Size)
		}
	}
	if isDir, ok := byName["2024"]; !ok || !isDir {
		t.Error("expected directory 2024")
	}

	if _, err := a.List(context.Background(), "photos", "nope"); err == nil {
		t.Error("expected error listing a missing directory")
	}
}

func TestOpen(t *testing.T) {
	a, _ := newTestAdapter(t)

	f, size, err := a.Open(context.Background(), "photos", "a.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if size != 10 {
		t.Errorf("size = %d, want 10", size)
	}
	if _, err := f.Seek(5, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(f)
	if string(rest) != "56789" {
		t.Errorf("read %q, want 56789", rest)
	}

	if _, _, err := a.Open(context.Background(), "photos", "2024"); err == nil {
		t.Error("expected error opening a directory")
	}
}

func TestLocalPath(t *testing.T) {
	a, dir := newTestAdapter(t)

	p, err := a.LocalPath("photos", "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(filepath.Join(dir, "photos", "a.jpg"))
	if p != want {
		t.Errorf("LocalPath = %q, want %q", p, want)
	}
	if a.Type() != "local" {
		t.Errorf("Type = %q", a.Type())
	}
}
