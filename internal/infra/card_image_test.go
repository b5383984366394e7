package infra

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
)

func TestSanitizeCardName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sol Ring", "sol_ring"},
		{"Atraxa, Praetors' Voice", "atraxa_praetors_voice"},
		{"../../etc/passwd", "etc_passwd"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCardName(tt.in); got != tt.want {
			t.Errorf("sanitizeCardName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCardImageDownloader_Thumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 488, 680))
	for x := 0; x < 488; x++ {
		src.Set(x, x%680, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("exact") != "Sol Ring" || r.URL.Query().Get("format") != "image" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	d, err := NewCardImageDownloader(t.TempDir(), WithImageEndpoint(server.URL, http.DefaultClient))
	if err != nil {
		t.Fatalf("NewCardImageDownloader failed: %v", err)
	}

	path, err := d.Thumbnail(context.Background(), "Sol Ring")
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("failed to open thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != ThumbnailWidth || b.Dy() != ThumbnailHeight {
		t.Errorf("expected %dx%d, got %dx%d", ThumbnailWidth, ThumbnailHeight, b.Dx(), b.Dy())
	}

	// Second call is served from disk
	if _, err := d.Thumbnail(context.Background(), "Sol Ring"); err != nil {
		t.Fatalf("cached Thumbnail failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 download, got %d", hits.Load())
	}
}
