// Package jobclient submits restoration jobs to the local API proxy and
// fetches their status. It is the only code that knows the proxy's wire shape.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"colorold/internal/domain"
)

// Operation selects which model family the proxy should run.
type Operation string

const (
	OperationRestore  Operation = "restore"
	OperationColorize Operation = "colorize"
)

// Options configures the proxy client.
type Options struct {
	BaseURL    string
	Token      string
	Locale     string
	Operation  Operation
	HTTPClient *http.Client
}

// Client calls POST /v1/{operation} and GET /v1/{operation}/{id}.
type Client struct {
	baseURL    string
	token      string
	locale     string
	operation  Operation
	httpClient *http.Client
}

type submitRequest struct {
	ImageURL string `json:"imageUrl"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// New builds a Client. Inference jobs are slow, so the default timeout is generous.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	op := opts.Operation
	if op == "" {
		op = OperationRestore
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		token:      strings.TrimSpace(opts.Token),
		locale:     strings.TrimSpace(opts.Locale),
		operation:  op,
		httpClient: httpClient,
	}
}

// Submit creates exactly one remote job for imageRef. There is no implicit
// retry because the provider does not deduplicate submissions.
func (c *Client) Submit(ctx context.Context, imageRef string) (*domain.Job, error) {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return nil, domain.NewValidationError(domain.CodeImageURLRequired, "")
	}
	body, err := json.Marshal(submitRequest{ImageURL: imageRef})
	if err != nil {
		return nil, fmt.Errorf("jobclient: encode request: %w", err)
	}
	var job domain.Job
	if err := c.do(ctx, http.MethodPost, c.endpoint(), body, &job); err != nil {
		return nil, fmt.Errorf("jobclient: submit: %w", err)
	}
	if strings.TrimSpace(job.ID) == "" {
		return nil, fmt.Errorf("jobclient: submit: response missing job id: %w", domain.ErrProtocol)
	}
	if job.Status == "" {
		job.Status = domain.JobStatusStarting
	}
	return &job, nil
}

// Fetch reads the job resource. It never mutates provider state.
func (c *Client) Fetch(ctx context.Context, jobID string) (*domain.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, domain.NewValidationError(domain.CodeJobIDRequired, "")
	}
	var job domain.Job
	if err := c.do(ctx, http.MethodGet, c.endpoint()+"/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, fmt.Errorf("jobclient: fetch %s: %w", jobID, err)
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

func (c *Client) endpoint() string {
	return c.baseURL + "/v1/" + string(c.operation)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.locale != "" {
		req.Header.Set("X-Language", c.locale)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, domain.ErrProtocol)
	}
	return nil
}

// statusError maps a non-2xx proxy response onto the error taxonomy.
func statusError(status int, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)
	msg := strings.TrimSpace(body.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, domain.ErrUnauthorized)
	case body.Code == "quota_exceeded":
		return fmt.Errorf("%s: %w", msg, domain.ErrQuotaExceeded)
	case status == http.StatusBadRequest && body.Code != "":
		return &domain.ValidationError{Code: body.Code, Detail: msg}
	default:
		return &domain.UpstreamError{StatusCode: status, Message: msg}
	}
}
