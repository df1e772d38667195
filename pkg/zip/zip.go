// Package zip packs a restored photo next to its original for download.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// Comparison names the original and restored photo for a before/after
// bundle, keeping each file's extension.
func Comparison(original, restored Asset) []Asset {
	return []Asset{
		{Filename: "before" + ext(original.MIME), MIME: original.MIME, Data: original.Data},
		{Filename: "after" + ext(restored.MIME), MIME: restored.MIME, Data: restored.Data},
	}
}

// WriteArchive writes assets to w as a zip archive stamped with modified.
// Images are already compressed, so entries are stored rather than deflated.
func WriteArchive(w io.Writer, modified time.Time, assets []Asset) error {
	zw := zip.NewWriter(w)
	for _, asset := range assets {
		hdr := &zip.FileHeader{Name: asset.Filename, Method: zip.Store, Modified: modified}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}

func ext(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
