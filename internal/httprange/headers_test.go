package httprange

import (
	"net/http"
	"strconv"
	"testing"
)

func TestBuildStreamHeadersPartial(t *testing.T) {
	h := BuildStreamHeaders("video/mp4", 1000, 100, 199, true, "")

	want := map[string]string{
		"Accept-Ranges":  "bytes",
		"Content-Type":   "video/mp4",
		"Content-Range":  "bytes 100-199/1000",
		"Content-Length": "100",
	}
	if len(h) != len(want) {
		t.Errorf("got %d headers, want %d: %v", len(h), len(want), h)
	}
	for k, v := range want {
		if h[k] != v {
			t.Errorf("%s = %q, want %q", k, h[k], v)
		}
	}
}

func TestBuildStreamHeadersFull(t *testing.T) {
	h := BuildStreamHeaders("image/jpeg", 4321, 0, 4320, false, "")
	if h[HeaderContentLength] != "4321" {
		t.Errorf("Content-Length = %q, want 4321", h[HeaderContentLength])
	}
	if _, ok := h[HeaderContentRange]; ok {
		t.Error("full response must not carry Content-Range")
	}
	if _, ok := h[HeaderContentDisposition]; ok {
		t.Error("no filename should mean no Content-Disposition")
	}
}

func TestContentLengthMatchesSpan(t *testing.T) {
	const size = 1000
	for _, header := range []string{"", "bytes=0-0", "bytes=0-499", "bytes=999-", "bytes=-1", "bytes=250-2000"} {
		r, err := ParseRange(header, size)
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", header, err)
		}
		h := HeadersFor("application/octet-stream", size, r, "")
		n, _ := strconv.ParseInt(h[HeaderContentLength], 10, 64)
		if n != r.Length() {
			t.Errorf("%q: Content-Length %d, span %d", header, n, r.Length())
		}
	}
}

func TestContentRangeRoundTrip(t *testing.T) {
	const size = 1000
	for _, header := range []string{"bytes=0-499", "bytes=999-", "bytes=0-2000", "bytes=-250", "bytes=42-42"} {
		r, err := ParseRange(header, size)
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", header, err)
		}
		h := HeadersFor("text/plain", size, r, "")
		start, end, total, err := ParseContentRange(h[HeaderContentRange])
		if err != nil {
			t.Fatalf("%q: %v", header, err)
		}
		if start != r.Start || end != r.End || total != size {
			t.Errorf("%q: re-parsed %d-%d/%d, want %d-%d/%d", header, start, end, total, r.Start, r.End, size)
		}
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", `inline; filename="report.pdf"`},
		{"my photo.jpg", `inline; filename="my%20photo.jpg"`},
		{"été.png", `inline; filename="%C3%A9t%C3%A9.png"`},
		{`a"b.txt`, `inline; filename="a%22b.txt"`},
		{"dir/x~y_z-1.txt", `inline; filename="dir/x~y_z-1.txt"`},
	}
	for _, tt := range tests {
		h := BuildStreamHeaders("application/octet-stream", 1, 0, 0, false, tt.filename)
		if got := h[HeaderContentDisposition]; got != tt.want {
			t.Errorf("filename %q: got %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestApply(t *testing.T) {
	dst := http.Header{}
	dst.Set("Content-Length", "1")
	BuildStreamHeaders("image/png", 10, 0, 4, true, "a.png").Apply(dst)

	if dst.Get("Content-Length") != "5" {
		t.Errorf("Content-Length = %q, want 5", dst.Get("Content-Length"))
	}
	if dst.Get("Content-Range") != "bytes 0-4/10" {
		t.Errorf("Content-Range = %q", dst.Get("Content-Range"))
	}
}

func TestUnsatisfiableHeaders(t *testing.T) {
	h := UnsatisfiableHeaders(1000)
	if h[HeaderContentRange] != "bytes */1000" {
		t.Errorf("Content-Range = %q", h[HeaderContentRange])
	}
}
