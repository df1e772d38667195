package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

// DefaultMaxEdge caps the longer side of a downscaled image.
const DefaultMaxEdge = 2048

// JPEGQuality is used when re-encoding.
const JPEGQuality = 90

// Image is an in-memory photo ready for upload.
type Image struct {
	Name string
	MIME string
	Data []byte
}

// LoadFile reads path and sniffs its content type.
func LoadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imaging: read %s: %w", path, err)
	}
	return &Image{
		Name: filepath.Base(path),
		MIME: mimetype.Detect(data).String(),
		Data: data,
	}, nil
}

// Downscale shrinks img so its longer edge is at most maxEdge, keeping the
// aspect ratio. Images already within bounds are returned unchanged. PNG
// input stays PNG; everything else is written as JPEG.
func Downscale(img *Image, maxEdge int) (*Image, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	src, format, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode %s: %w", img.Name, err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img, nil
	}

	nw, nh := fit(w, h, maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	mime := "image/jpeg"
	if format == "png" {
		mime = "image/png"
		err = png.Encode(&out, dst)
	} else {
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", img.Name, err)
	}
	return &Image{Name: img.Name, MIME: mime, Data: out.Bytes()}, nil
}

func fit(w, h, maxEdge int) (int, int) {
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
