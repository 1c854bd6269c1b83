package httprange

import (
	"net/http"
	"testing"

	"github.com/fruitsalade/mediakit/internal/apierr"
)

func TestParseRange(t *testing.T) {
	const size = 1000
	tests := []struct {
		name   string
		header string
		want   Range
	}{
		{"no header", "", Range{0, 999, 200, false}},
		{"other unit", "items=0-5", Range{0, 999, 200, false}},
		{"first half", "bytes=0-499", Range{0, 499, 206, true}},
		{"last byte open", "bytes=999-", Range{999, 999, 206, true}},
		{"end clamped", "bytes=0-2000", Range{0, 999, 206, true}},
		{"middle", "bytes=100-199", Range{100, 199, 206, true}},
		{"spaces", "bytes= 10 - 20 ", Range{10, 20, 206, true}},
		{"suffix", "bytes=-500", Range{500, 999, 206, true}},
		{"suffix larger than file", "bytes=-5000", Range{0, 999, 206, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, size)
			if err != nil {
				t.Fatalf("ParseRange(%q): %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("ParseRange(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	const size = 1000
	tests := []struct {
		header string
		code   int
	}{
		{"bytes=1000-", http.StatusRequestedRangeNotSatisfiable},
		{"bytes=5000-6000", http.StatusRequestedRangeNotSatisfiable},
		{"bytes=-0", http.StatusRequestedRangeNotSatisfiable},
		{"bytes=abc-10", http.StatusBadRequest},
		{"bytes=0-xyz", http.StatusBadRequest},
		{"bytes=-5-", http.StatusBadRequest},
		{"bytes=+5-10", http.StatusBadRequest},
		{"bytes=10", http.StatusBadRequest},
		{"bytes=-", http.StatusBadRequest},
		{"bytes=0-1,5-9", http.StatusBadRequest},
		{"bytes=500-100", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			_, err := ParseRange(tt.header, size)
			if err == nil {
				t.Fatalf("ParseRange(%q) succeeded, want %d", tt.header, tt.code)
			}
			if got := apierr.StatusOf(err); got != tt.code {
				t.Errorf("status = %d, want %d (%v)", got, tt.code, err)
			}
		})
	}
}

func TestParseRangeEmptyResource(t *testing.T) {
	if _, err := ParseRange("bytes=0-", 0); !apierr.IsCode(err, apierr.CodeRangeNotSatisfiable) {
		t.Errorf("expected 416 for empty resource, got %v", err)
	}
	if _, err := ParseRange("bytes=-10", 0); !apierr.IsCode(err, apierr.CodeRangeNotSatisfiable) {
		t.Errorf("expected 416 for suffix on empty resource, got %v", err)
	}
}

func TestRangeLength(t *testing.T) {
	r, _ := ParseRange("bytes=10-19", 100)
	if r.Length() != 10 {
		t.Errorf("Length = %d, want 10", r.Length())
	}
	if Full(100).Length() != 100 {
		t.Error("full range should span the resource")
	}
}

func TestParseContentRange(t *testing.T) {
	start, end, size, err := ParseContentRange("bytes 0-499/1000")
	if err != nil || start != 0 || end != 499 || size != 1000 {
		t.Errorf("got %d-%d/%d err=%v", start, end, size, err)
	}
	for _, bad := range []string{"bytes */1000", "bytes 5-1/10", "bytes 0-10/10", "chunks 0-1/2"} {
		if _, _, _, err := ParseContentRange(bad); err == nil {
			t.Errorf("ParseContentRange(%q) should fail", bad)
		}
	}
}
