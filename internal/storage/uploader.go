package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"colorold/internal/domain"
)

// Uploader turns a local file into a URL the inference provider can read.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// InlineUploader embeds the file as a data: URL. It is used when no upload
// endpoint is configured so the rest of the pipeline still works.
type InlineUploader struct{}

func (InlineUploader) Upload(ctx context.Context, _ string, contentType string, data []byte) (string, error) {
	return InlineStore{}.Put(ctx, "", contentType, data)
}

// HTTPUploader posts the file as multipart form field "file" and expects
// {"url": "..."} back.
type HTTPUploader struct {
	Endpoint   string
	Token      string
	HTTPClient *http.Client
}

type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// NewUploader returns an HTTPUploader for endpoint, or an InlineUploader
// when endpoint is empty.
func NewUploader(endpoint, token string, httpClient *http.Client) Uploader {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return InlineUploader{}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPUploader{Endpoint: endpoint, Token: strings.TrimSpace(token), HTTPClient: httpClient}
}

func (u *HTTPUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(filePartHeader(name, contentType))
	if err != nil {
		return "", fmt.Errorf("storage: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("storage: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("storage: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("storage: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}

	client := u.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("storage: read response: %w", err)
	}
	var out uploadResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage: upload: %w", &domain.UpstreamError{StatusCode: resp.StatusCode, Message: out.Error})
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", fmt.Errorf("storage: upload response missing url: %w", domain.ErrProtocol)
	}
	return out.URL, nil
}

func filePartHeader(name, contentType string) textproto.MIMEHeader {
	name = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, name)},
		"Content-Type":        {contentType},
	}
}
