// Package replicate talks to the hosted inference provider. Only the API
// proxy uses it; the provider token never leaves the server.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"colorold/internal/domain"
	"colorold/internal/infra"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Options configures the provider client.
type Options struct {
	APIToken       string
	ReadToken      string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the predictions API.
type Client struct {
	apiToken   string
	readToken  string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type createRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	Logs   *string         `json:"logs"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		readToken:  strings.TrimSpace(opts.ReadToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can create predictions.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// CreatePrediction starts one job for imageURL on the given model. It never
// retries: the provider does not deduplicate submissions.
func (c *Client) CreatePrediction(ctx context.Context, model Model, imageURL string) (*domain.Job, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIToken
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, domain.NewValidationError(domain.CodeImageURLRequired, "")
	}
	payload := createRequest{Version: model.Version, Input: model.input(imageURL)}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}

	c.logger.Debug().Str("model", model.Name).Str("version", model.Version).Msg("replicate: creating prediction")
	decoded, err := c.do(ctx, http.MethodPost, c.baseURL+"/predictions", c.apiToken, body)
	if err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, fmt.Errorf("replicate: create prediction: missing id: %w", domain.ErrProtocol)
	}
	c.logger.Info().Str("job_id", decoded.ID).Str("status", decoded.Status).Str("model", model.Name).Msg("replicate: prediction created")
	return decoded.job(), nil
}

// GetPrediction fetches the current state of a prediction. A 404 maps to
// domain.ErrNotFound so callers can tell an expired task from a failure.
func (c *Client) GetPrediction(ctx context.Context, id string) (*domain.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError(domain.CodeJobIDRequired, "")
	}
	token := c.readToken
	if token == "" {
		token = c.apiToken
	}
	if token == "" {
		return nil, ErrMissingAPIToken
	}
	decoded, err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+url.PathEscape(id), token, nil)
	if err != nil {
		return nil, err
	}
	job := decoded.job()
	if job.ID == "" {
		job.ID = id
	}
	c.logger.Debug().Str("job_id", job.ID).Str("status", string(job.Status)).Int("logs_len", len(job.Logs)).Msg("replicate: prediction fetched")
	return job, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte) (*predictionResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}

	// Only a lookup can miss; a 404 on create means a bad model or route.
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return nil, fmt.Errorf("replicate: %s %s: %w", method, endpoint, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("body", truncate(string(raw), 300)).Msg("replicate: error response")
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Message: errorDetail(raw)}
	}

	var decoded predictionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %v: %w", err, domain.ErrProtocol)
	}
	return &decoded, nil
}

func (p *predictionResponse) job() *domain.Job {
	job := &domain.Job{
		ID:     p.ID,
		Status: domain.JobStatus(strings.ToLower(strings.TrimSpace(p.Status))),
		Output: firstString(p.Output),
		Error:  errorText(p.Error),
	}
	if p.Logs != nil {
		job.Logs = *p.Logs
	}
	if job.Status != domain.JobStatusSucceeded {
		job.Output = ""
	}
	return job
}

// firstString accepts either a single URL or a list of URLs.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, s := range many {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func errorDetail(raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Title != "" {
			return detail.Title
		}
	}
	return truncate(strings.TrimSpace(string(raw)), 300)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
