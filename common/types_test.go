package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeTextureStagingData(t *testing.T) {
	data, err := DecodeTextureStagingData(bytes.NewReader(encodePNG(t, 4, 2, color.RGBA{R: 255, A: 255})))
	if err != nil {
		t.Fatalf("DecodeTextureStagingData() error = %v", err)
	}
	if data.Width != 4 || data.Height != 2 {
		t.Errorf("size = %dx%d, want 4x2", data.Width, data.Height)
	}
	if len(data.Pixels) != 4*2*4 {
		t.Fatalf("len(Pixels) = %d, want %d", len(data.Pixels), 4*2*4)
	}
	if data.Pixels[0] != 255 || data.Pixels[1] != 0 || data.Pixels[3] != 255 {
		t.Errorf("first pixel = %v, want opaque red", data.Pixels[:4])
	}
}

func TestDecodeTextureStagingData_Invalid(t *testing.T) {
	if _, err := DecodeTextureStagingData(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected an error for invalid image data")
	}
}

func TestLoadTextureStagingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lut.png")
	if err := os.WriteFile(path, encodePNG(t, 16, 1, color.RGBA{G: 128, A: 255}), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := LoadTextureStagingData(path)
	if err != nil {
		t.Fatalf("LoadTextureStagingData() error = %v", err)
	}
	if data.Width != 16 || data.Height != 1 {
		t.Errorf("size = %dx%d, want 16x1", data.Width, data.Height)
	}

	if _, err := LoadTextureStagingData(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
