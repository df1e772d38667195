package jobclient

import (
	"context"
	"fmt"
	"net/http"
)

// Usage mirrors the proxy's GET /v1/usage response.
type Usage struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Period    string `json:"period"`
}

// Usage returns the caller's allowance as seen by the proxy.
func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	var u Usage
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/usage", nil, &u); err != nil {
		return nil, fmt.Errorf("jobclient: usage: %w", err)
	}
	return &u, nil
}

// RemoteQuota lets the client-side orchestrator check the server-side
// allowance before uploading. The server counts consumption itself when it
// accepts a submission, so RecordUse is a no-op here.
type RemoteQuota struct {
	Client *Client
}

func (q RemoteQuota) CanUse(ctx context.Context, _ string) (bool, error) {
	u, err := q.Client.Usage(ctx)
	if err != nil {
		return false, err
	}
	return u.Remaining > 0, nil
}

func (q RemoteQuota) RecordUse(context.Context, string) error { return nil }
