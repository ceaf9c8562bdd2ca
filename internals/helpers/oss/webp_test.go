package helper

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestConvertToWebPDownscales(t *testing.T) {
	out, err := ConvertToWebP(pngBytes(t, 400, 200), "evidencia.png", WebPOptions{MaxW: 100, MaxH: 100, Quality: 70})
	if err != nil {
		t.Fatalf("ConvertToWebP: %v", err)
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not webp: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestConvertToWebPRejectsUnknownFormat(t *testing.T) {
	_, err := ConvertToWebP([]byte("definitely not an image"), "notes.txt", DefaultWebPOptions())
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("err = %v, want ErrUnsupportedImage", err)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name, base, endpoint, bucket, key, want string
	}{
		{"cdn base", "https://cdn.example.com/", "oss-cn.aliyuncs.com", "scoda", "a/b.webp", "https://cdn.example.com/a/b.webp"},
		{"bucket host", "", "https://oss-cn.aliyuncs.com", "scoda", "a/b.webp", "https://scoda.oss-cn.aliyuncs.com/a/b.webp"},
		{"empty key", "", "oss-cn.aliyuncs.com", "scoda", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicURL(tt.base, tt.endpoint, tt.bucket, tt.key); got != tt.want {
				t.Errorf("PublicURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvidenceKey(t *testing.T) {
	id := uuid.New()
	key := EvidenceKey("/scoda/", id, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(key, "scoda/evidence/2026-03-02/"+id.String()+"_") || !strings.HasSuffix(key, ".webp") {
		t.Errorf("key = %q", key)
	}
}
