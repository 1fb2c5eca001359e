package proof

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Client requests proofs from a remote proving service over HTTP.
type Client struct {
	url    string
	client *http.Client
}

// NewClient returns a client posting requests to the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		// Proving is slow; leave generous room before giving up.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Generate(ctx context.Context, req *Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ServiceError{Reason: "request encoding", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Reason: "request creation", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &ServiceError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &ServiceError{Reason: "response read", Err: err}
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ServiceError{Reason: "response decoding", Err: err}
	}
	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = resp.Status
		}
		return nil, &ServiceError{Reason: reason}
	}
	if len(out.Calldata) == 0 {
		return nil, &ServiceError{Reason: "empty calldata in successful response"}
	}
	return out.Calldata, nil
}
