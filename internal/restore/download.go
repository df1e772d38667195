package restore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"colorold/internal/domain"
	"colorold/internal/storage"
)

// Download writes the restored image to w. It is only valid in Success.
func (o *Orchestrator) Download(ctx context.Context, w io.Writer) (int64, error) {
	s := o.Session()
	if s.State != StateSuccess || s.ResultRef == "" {
		return 0, ErrNoResult
	}
	return o.fetchRef(ctx, s.ResultRef, w)
}

// Original writes the uploaded source image to w.
func (o *Orchestrator) Original(ctx context.Context, w io.Writer) (int64, error) {
	s := o.Session()
	if s.OriginalRef == "" {
		return 0, ErrNoResult
	}
	return o.fetchRef(ctx, s.OriginalRef, w)
}

func (o *Orchestrator) fetchRef(ctx context.Context, ref string, w io.Writer) (int64, error) {
	_, data, err := storage.ParseDataURL(ref)
	if err == nil {
		return io.Copy(w, bytes.NewReader(data))
	}
	if !errors.Is(err, storage.ErrNotDataURL) {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return 0, fmt.Errorf("restore: download: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("restore: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("restore: download: %w", &domain.UpstreamError{StatusCode: resp.StatusCode, Message: resp.Status})
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("restore: download: %w", err)
	}
	return n, nil
}
