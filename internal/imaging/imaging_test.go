package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"colorold/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		file     File
		wantCode string
	}{
		{"jpeg", File{Name: "a.jpg", MIME: "image/jpeg", Size: 10}, ""},
		{"png upper ext", File{Name: "A.PNG", MIME: "", Size: 10}, ""},
		{"mime only", File{Name: "blob", MIME: "image/png", Size: 10}, ""},
		{"ext only", File{Name: "scan.jpeg", MIME: "application/octet-stream", Size: 10}, ""},
		{"neither", File{Name: "doc.pdf", MIME: "application/pdf", Size: 10}, domain.CodeUnsupportedFormat},
		{"webp", File{Name: "a.webp", MIME: "image/webp", Size: 10}, domain.CodeUnsupportedFormat},
		{"empty", File{Name: "a.jpg", MIME: "image/jpeg", Size: 0}, domain.CodeFileEmpty},
		{"at ceiling", File{Name: "a.jpg", MIME: "image/jpeg", Size: DefaultMaxBytes}, ""},
		{"over ceiling", File{Name: "a.jpg", MIME: "image/jpeg", Size: DefaultMaxBytes + 1}, domain.CodeFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, 0)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := domain.ValidationCode(err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("x.bin", "image/jpg"); got != "image/jpeg" {
		t.Fatalf("got %q", got)
	}
	if got := ContentType("x.png", ""); got != "image/png" {
		t.Fatalf("got %q", got)
	}
	if got := ContentType("x.txt", "text/plain"); got != "application/octet-stream" {
		t.Fatalf("got %q", got)
	}
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 90, B: 60, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDownscaleJPEG(t *testing.T) {
	in := &Image{Name: "wide.jpg", MIME: "image/jpeg", Data: encodeJPEG(t, solid(400, 100))}
	out, err := Downscale(in, 200)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	if out.MIME != "image/jpeg" {
		t.Fatalf("mime = %q", out.MIME)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if format != "jpeg" || cfg.Width != 200 || cfg.Height != 50 {
		t.Fatalf("result = %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestDownscaleKeepsPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(60, 300)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Downscale(&Image{Name: "tall.png", Data: buf.Bytes()}, 100)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if format != "png" || out.MIME != "image/png" || cfg.Width != 20 || cfg.Height != 100 {
		t.Fatalf("result = %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestDownscaleWithinBoundsIsNoop(t *testing.T) {
	in := &Image{Name: "small.jpg", MIME: "image/jpeg", Data: encodeJPEG(t, solid(50, 40))}
	out, err := Downscale(in, 2048)
	if err != nil {
		t.Fatalf("Downscale: %v", err)
	}
	if out != in {
		t.Fatalf("expected the original image back")
	}
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	if _, err := Downscale(&Image{Name: "x.jpg", Data: []byte("nope")}, 10); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadFileSniffsType(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(2, 2)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "photo.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	img, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if img.Name != "photo.bin" || img.MIME != "image/png" || len(img.Data) != buf.Len() {
		t.Fatalf("image = %s %s %d", img.Name, img.MIME, len(img.Data))
	}
}

func TestValidateKeepsFileNameVerbatim(t *testing.T) {
	err := Validate(File{Name: "scan 100%.jpg", MIME: "image/jpeg"}, 0)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Code != domain.CodeFileEmpty || ve.Detail != "scan 100%.jpg" {
		t.Fatalf("unexpected error: %+v", ve)
	}
}
