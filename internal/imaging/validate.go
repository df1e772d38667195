// Package imaging checks user-supplied photos and shrinks them before upload.
package imaging

import (
	"path/filepath"
	"strings"

	"colorold/internal/domain"
)

// DefaultMaxBytes is the upload ceiling.
const DefaultMaxBytes int64 = 8 << 20

var (
	allowedExt  = map[string]string{".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png"}
	allowedMIME = map[string]bool{"image/jpeg": true, "image/jpg": true, "image/png": true}
)

// File describes an upload candidate before its bytes are read.
type File struct {
	Name string
	MIME string
	Size int64
}

// Validate rejects files that are empty, larger than maxBytes, or not a JPEG
// or PNG. A file passes the type check when either its extension or its
// declared MIME type is on the allow-list.
func Validate(f File, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !allowedType(f.Name, f.MIME) {
		return domain.NewValidationError(domain.CodeUnsupportedFormat, "%s (%s)", f.Name, f.MIME)
	}
	if f.Size <= 0 {
		return domain.NewValidationError(domain.CodeFileEmpty, "%s", f.Name)
	}
	if f.Size > maxBytes {
		return domain.NewValidationError(domain.CodeFileTooLarge, "%d > %d bytes", f.Size, maxBytes)
	}
	return nil
}

// ContentType picks the MIME type to store the file under.
func ContentType(name, declared string) string {
	if m := normalizeMIME(declared); allowedMIME[m] {
		if m == "image/jpg" {
			return "image/jpeg"
		}
		return m
	}
	if m, ok := allowedExt[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return "application/octet-stream"
}

func allowedType(name, mime string) bool {
	if _, ok := allowedExt[strings.ToLower(filepath.Ext(name))]; ok {
		return true
	}
	return allowedMIME[normalizeMIME(mime)]
}

func normalizeMIME(m string) string {
	m, _, _ = strings.Cut(m, ";")
	return strings.ToLower(strings.TrimSpace(m))
}
