package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists an uploaded object and returns a URL the inference
// provider can fetch.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ObjectKey builds a date-partitioned, collision-free key for an upload.
func ObjectKey(now time.Time, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	}
	return path.Join("uploads", now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

// DataURL encodes data as a base64 data: URL.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ErrNotDataURL is returned by ParseDataURL for any other scheme.
var ErrNotDataURL = errors.New("storage: not a data url")

// ParseDataURL decodes a base64 data: URL produced by DataURL.
func ParseDataURL(raw string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("storage: malformed data url")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return contentType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("storage: decode data url: %w", err)
	}
	return contentType, data, nil
}

// InlineStore is the fallback used when no object storage is configured:
// the object is embedded in the returned URL itself.
type InlineStore struct{}

func (InlineStore) Put(ctx context.Context, _ string, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return DataURL(contentType, data), nil
}
